package domain

import (
	"time"
)

// SysOpr is a staff account (admin or officer).
type SysOpr struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `gorm:"size:100" json:"name" form:"name"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email" form:"email"`
	Password  string    `json:"-" form:"password"`
	Role      string    `gorm:"size:20;index" json:"role" form:"role"`
	LastLogin time.Time `json:"lastLogin" form:"last_login"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (SysOpr) TableName() string {
	return "sys_opr"
}

type SysOprLog struct {
	ID        int64     `json:"id,string"`
	OprName   string    `gorm:"size:255" json:"oprName"`
	OprIp     string    `gorm:"size:64" json:"oprIp"`
	OptAction string    `gorm:"size:64;index" json:"optAction"`
	OptDesc   string    `gorm:"size:1024" json:"optDesc"`
	OptTime   time.Time `gorm:"index" json:"optTime"`
}

// TableName Specify table name
func (SysOprLog) TableName() string {
	return "sys_opr_log"
}
