package model

// Subject 课程参考数据 — 对应 subjects
type Subject struct {
	SubjectID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	Code      string  `gorm:"type:varchar(30);not null;uniqueIndex"           json:"code"`
	Name      string  `gorm:"type:varchar(200);not null"                      json:"name"`
	Credits   float64 `gorm:"type:numeric(4,1);not null;default:0"            json:"credits"`
	Mandatory bool    `gorm:"not null;default:true"                           json:"mandatory"`
	BaseModel
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }
