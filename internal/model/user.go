package model

// User represents a row in the shared user table. The table lives in the
// Dashboard_Users schema and is provisioned out of band; this service only
// reads it.
type User struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Email       string `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password    string `json:"-" gorm:"type:varchar(255)"`
	Name        string `json:"name" gorm:"type:varchar(100)"`
	CompanyName string `json:"companyName" gorm:"column:companyName"`
}

// TableName points gorm at the schema-qualified shared user table.
func (User) TableName() string {
	return "Dashboard_Users.users"
}
