package models

// Post is a news item whose body lives in an external markdown file.
type Post struct {
	Model

	Slug   string `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Title  string `gorm:"size:200;not null" json:"title"`
	Link   string `gorm:"size:500;not null" json:"link"`
	Author string `gorm:"size:150;index" json:"author"`
}

type Commentary struct {
	Model

	Slug   string `gorm:"uniqueIndex;size:100;not null" json:"slug"`
	Title  string `gorm:"size:200;not null" json:"title"`
	Author string `gorm:"size:150;index" json:"author"`
	Body   string `gorm:"type:text" json:"body"`
}

func (Commentary) TableName() string {
	return "commentaries"
}
