package models

// Tag labels recipes. Tags are reference data managed by administrators.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:32;not null;uniqueIndex" json:"name"`
	Slug string `gorm:"size:32;not null;uniqueIndex" json:"slug"`
}

// Ingredient is a catalog entry with the unit its amounts are measured in.
// Names are not unique: the same product may be listed in several units.
type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:128;not null;index" json:"name"`
	MeasurementUnit string `gorm:"size:64;not null" json:"measurement_unit"`
}
