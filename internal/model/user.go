package model

import "time"

// User 表示系统用户。
//
// Password 存储 bcrypt 哈希，永远不会出现在 JSON 响应中。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"_id"`                               // 用户 ID
	Name      string    `gorm:"type:varchar(50);not null" json:"name"`               // 显示名称（5-50 字符）
	Email     string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"` // 邮箱（唯一）
	Password  string    `gorm:"not null" json:"-"`                                   // bcrypt 哈希
	IsAdmin   bool      `gorm:"default:false" json:"isAdmin"`                        // 管理员标记
	CreatedAt time.Time `json:"-"`                                                   // 创建时间
}
