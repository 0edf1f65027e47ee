package resources

import (
	"time"

	"gorm.io/datatypes"
)

// Resource is the canonical record of one discovered (domain, url) pair.
type Resource struct {
	ID                int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Domain            string         `gorm:"column:domain;type:text;not null;uniqueIndex:idx_resource_domain_url,priority:1" json:"domain"`
	URL               string         `gorm:"column:url;type:text;not null;uniqueIndex:idx_resource_domain_url,priority:2" json:"url"`
	Title             *string        `gorm:"column:title;type:text" json:"title,omitempty"`
	Metadata          datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	MetadataUpdatedAt *time.Time     `gorm:"column:metadata_updated_at" json:"metadataUpdatedAt,omitempty"`
	LastStatusCode    *int           `gorm:"column:last_status_code;index" json:"lastStatusCode,omitempty"`
	MimeType          *string        `gorm:"column:mime_type;type:text;index" json:"mimeType,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;index" json:"createdAt"`
	UpdatedAt         time.Time      `gorm:"not null;index" json:"updatedAt"`
}

func (Resource) TableName() string { return "resource" }

func (r *Resource) HasTitle() bool {
	return r != nil && r.Title != nil && *r.Title != ""
}

// ResourceAssociation links one parent row to one Resource. Every parent type
// shares this table; ParentType carries the variant.
type ResourceAssociation struct {
	ID           int64                            `gorm:"primaryKey;autoIncrement" json:"id"`
	ParentType   ParentType                       `gorm:"column:parent_type;type:varchar(32);not null;uniqueIndex:idx_resource_association_parent_resource,priority:1" json:"parentType"`
	ParentID     int64                            `gorm:"column:parent_id;not null;uniqueIndex:idx_resource_association_parent_resource,priority:2" json:"parentId"`
	ResourceID   int64                            `gorm:"column:resource_id;not null;uniqueIndex:idx_resource_association_parent_resource,priority:3;index" json:"resourceId"`
	Resource     *Resource                        `gorm:"foreignKey:ResourceID;references:ID;constraint:OnDelete:RESTRICT" json:"resource,omitempty"`
	SourceFields datatypes.JSONSlice[SourceField] `gorm:"column:source_fields;not null" json:"sourceFields"`
	OnAR         bool                             `gorm:"column:on_ar;not null;default:false" json:"onAR"`
	OnApprovedAR bool                             `gorm:"column:on_approved_ar;not null;default:false" json:"onApprovedAR"`
	CreatedAt    time.Time                        `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time                        `gorm:"not null" json:"updatedAt"`
}

func (ResourceAssociation) TableName() string { return "resource_association" }

func (a *ResourceAssociation) Fields() SourceFields {
	if a == nil {
		return SourceFields{}
	}
	return SourceFields(a.SourceFields).Normalized()
}
