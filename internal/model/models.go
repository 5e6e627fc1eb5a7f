package model

import (
	"time"
)

// Agenda 表示用户的日程表。
//
// 每个用户注册时自动创建一个空 Agenda（同一事务内），且最多只有一个。
// Events 的展示顺序即插入顺序（按 ID 升序）。
type Agenda struct {
	ID        uint      `gorm:"primaryKey" json:"_id"` // 日程表 ID
	CreatedAt time.Time `json:"-"`                     // 创建时间

	UserID uint    `gorm:"uniqueIndex;not null" json:"user"`      // 所属用户 ID（一对一）
	Events []Event `gorm:"foreignKey:AgendaID" json:"events"` // 日程事件列表
}

// Event 表示日程表中的一个事件。
//
// 按 eventId 替换时保留行 ID，因此在序列中的位置不变。
type Event struct {
	ID       uint `gorm:"primaryKey" json:"_id"`       // 事件 ID（插入时分配）
	AgendaID uint `gorm:"index;not null" json:"-"` // 所属日程表 ID

	InitialDate *time.Time `json:"initialDate"`                 // 开始时间（可选）
	FinalDate   *time.Time `json:"finalDate"`                   // 结束时间（可选）
	Title       string     `gorm:"not null" json:"title"`       // 标题（必填）
	Content     string     `gorm:"type:text" json:"content"`    // 备注内容（可选）
}

// Feed 表示用户投稿的内容条目。
//
// 新条目以草稿（IsAuthorized=false）创建，只有管理员发布后才对外可见。
// Author 在创建后不可变更。
type Feed struct {
	ID        uint      `gorm:"primaryKey" json:"_id"` // 条目 ID
	CreatedAt time.Time `json:"-"`                     // 创建时间

	Title        string `gorm:"type:varchar(255);not null" json:"title"` // 标题（5-255 字符）
	Description  string `gorm:"type:text;not null" json:"description"`   // 描述（至少 5 字符）
	AuthorID     uint   `gorm:"not null;index" json:"author"`            // 作者用户 ID（不可变）
	IsAnon       bool   `json:"isAnon"`                                  // 匿名投稿标记
	IsAuthorized bool   `gorm:"default:false" json:"isAuthorized"`       // 发布标记（默认草稿）
}

// Habit 表示一条习惯参考记录，纯 CRUD，无所有权。
type Habit struct {
	ID       uint   `gorm:"primaryKey" json:"_id"`    // 记录 ID
	Title    string `gorm:"not null" json:"title"`    // 标题
	Content  string `gorm:"type:text;not null" json:"content"` // 内容
	Category string `gorm:"not null" json:"category"` // 分类
}
