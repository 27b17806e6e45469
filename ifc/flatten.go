package ifc

import (
	"ifcserver/models"
)

// Flatten converts a record into its attribute map. Null, derived and
// missing parameters are left out; typed values and references are unwrapped
// to their inner scalar. "expressID" and "type" are always set.
func Flatten(rec *Record) models.Attributes {
	out := make(models.Attributes, len(rec.Attributes)+2)
	for _, attr := range rec.Attributes {
		if v, ok := FlattenParam(attr.Value); ok {
			out[attr.Name] = v
		}
	}
	out["expressID"] = models.Int(rec.ExpressID)
	out["type"] = models.String(rec.Type)
	return out
}

// FlattenParam returns false for parameters that carry no value
func FlattenParam(p Param) (models.Value, bool) {
	switch p.Kind {
	case ParamString, ParamBinary:
		return models.String(p.Text), true
	case ParamInteger, ParamReference:
		return models.Int(p.Int), true
	case ParamReal:
		return models.Float(p.Real), true
	case ParamEnum:
		switch p.Text {
		case "T":
			return models.Bool(true), true
		case "F":
			return models.Bool(false), true
		case "U":
			return models.String("UNKNOWN"), true
		}
		return models.String(p.Text), true
	case ParamTyped:
		// IFCLABEL('x') is a scalar boxed with its declared type
		if len(p.Items) == 1 {
			return FlattenParam(p.Items[0])
		}
		if len(p.Items) == 0 {
			return models.Value{}, false
		}
		return flattenList(p.Items), true
	case ParamList:
		return flattenList(p.Items), true
	}
	return models.Value{}, false
}

func flattenList(items []Param) models.Value {
	values := make([]models.Value, 0, len(items))
	for _, item := range items {
		if v, ok := FlattenParam(item); ok {
			values = append(values, v)
		}
	}
	return models.Array(values...)
}
