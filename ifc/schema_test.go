package ifc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttributeNames(t *testing.T) {
	tests := []struct {
		schema string
		entity string
		want   []string
	}{
		{"IFC4", "IFCWALL", []string{"GlobalId", "OwnerHistory", "Name", "Description", "ObjectType", "ObjectPlacement", "Representation", "Tag", "PredefinedType"}},
		{"IFC4", "ifcpropertysinglevalue", []string{"Name", "Description", "NominalValue", "Unit"}},
		{"IFC4", "IFCSPACE", []string{"GlobalId", "OwnerHistory", "Name", "Description", "ObjectType", "ObjectPlacement", "Representation", "LongName", "CompositionType", "PredefinedType", "ElevationWithFlooring"}},
		{"IFC2X3", "IFCSPACE", []string{"GlobalId", "OwnerHistory", "Name", "Description", "ObjectType", "ObjectPlacement", "Representation", "LongName", "CompositionType", "InteriorOrExteriorSpace", "ElevationWithFlooring"}},
		{"IFC2X3_TC1", "IFCPROPERTYBOUNDEDVALUE", []string{"Name", "Description", "UpperBoundValue", "LowerBoundValue", "Unit"}},
		{"IFC4", "IFCNOTATYPE", nil},
	}
	for _, tt := range tests {
		t.Run(tt.schema+"/"+tt.entity, func(t *testing.T) {
			assert.Equal(t, tt.want, AttributeNames(tt.schema, tt.entity))
		})
	}
}

func Test_attributeName(t *testing.T) {
	names := []string{"Name", "Description"}
	assert.Equal(t, "Name", attributeName(names, 0))
	assert.Equal(t, "Description", attributeName(names, 1))
	assert.Equal(t, "Attr2", attributeName(names, 2))
	assert.Equal(t, "Attr0", attributeName(nil, 0))
}
