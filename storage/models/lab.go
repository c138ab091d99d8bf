package models

type LabAddress struct {
	Model

	Type        string `gorm:"size:50" json:"type"`
	Department  string `gorm:"size:200" json:"department"`
	Institution string `gorm:"size:200" json:"institution"`
	Building    string `gorm:"size:100" json:"building"`
	Room        string `gorm:"size:50" json:"room"`
	Street      string `gorm:"size:200" json:"street"`
	City        string `gorm:"size:100" json:"city"`
	State       string `gorm:"size:100" json:"state"`
	PostalCode  string `gorm:"size:20" json:"postal_code"`
	Country     string `gorm:"size:100" json:"country"`
	Phone       string `gorm:"size:50" json:"phone"`
	Fax         string `gorm:"size:50" json:"fax"`
	Email       string `gorm:"size:200" json:"email"`
}

type LabLocation struct {
	Model

	Name        string   `gorm:"size:200;not null" json:"name"`
	Address     string   `gorm:"size:500" json:"address"`
	Description string   `gorm:"type:text" json:"description"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Public      bool     `gorm:"not null;default:true" json:"public"`
}
