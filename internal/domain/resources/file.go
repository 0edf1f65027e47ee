package resources

import "time"

const (
	FileStatusUploaded = "UPLOADED"
	FileStatusDeleting = "DELETING"
)

// File is an uploaded attachment. Its blob lives in object storage under Key.
type File struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Key              string    `gorm:"column:key;type:text;not null;uniqueIndex" json:"key"`
	OriginalFileName string    `gorm:"column:original_file_name;type:text" json:"originalFileName"`
	FileSize         int64     `gorm:"column:file_size" json:"fileSize"`
	Status           string    `gorm:"column:status;type:varchar(32);not null;default:'UPLOADED'" json:"status"`
	CreatedAt        time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"not null" json:"updatedAt"`
}

func (File) TableName() string { return "file" }

// FileAssociation links a parent row to a File.
type FileAssociation struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ParentType ParentType `gorm:"column:parent_type;type:varchar(32);not null;uniqueIndex:idx_file_association_parent_file,priority:1" json:"parentType"`
	ParentID   int64      `gorm:"column:parent_id;not null;uniqueIndex:idx_file_association_parent_file,priority:2" json:"parentId"`
	FileID     int64      `gorm:"column:file_id;not null;uniqueIndex:idx_file_association_parent_file,priority:3;index" json:"fileId"`
	File       *File      `gorm:"foreignKey:FileID;references:ID;constraint:OnDelete:RESTRICT" json:"file,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updatedAt"`
}

func (FileAssociation) TableName() string { return "file_association" }
