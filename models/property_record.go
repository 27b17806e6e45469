package models

import "strconv"

// PropertyRecord holds the flattened attributes of one element of one model.
// (ModelID, ExpressID) is unique; writes replace the previous record.
type PropertyRecord struct {
	ID         uint64     `gorm:"primaryKey" json:"id"`
	ModelID    uint64     `gorm:"not null;uniqueIndex:uniq_model_express,priority:1" json:"modelId"`
	ExpressID  int64      `gorm:"not null;uniqueIndex:uniq_model_express,priority:2" json:"expressId"`
	Properties Attributes `gorm:"not null" json:"properties"`
	CreatedAt  int64      `json:"createdAt"`
}

// PropertyKey is the "<model>-<express>" key the records are unique by
func PropertyKey(modelID uint64, expressID int64) string {
	return strconv.FormatUint(modelID, 10) + "-" + strconv.FormatInt(expressID, 10)
}

func (r *PropertyRecord) Key() string {
	return PropertyKey(r.ModelID, r.ExpressID)
}
