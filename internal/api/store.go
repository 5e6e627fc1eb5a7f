package api

import (
	"context"
	"errors"

	"felicidade/internal/model"

	"gorm.io/gorm"
)

// ErrNotFound 表示记录不存在。存在与否由调用方决定是不是错误。
var ErrNotFound = errors.New("record not found")

// UserStore 用户数据访问接口。
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	// CreateWithAgenda 在同一事务内创建用户与空日程表。
	CreateWithAgenda(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
}

// FeedStore 内容条目数据访问接口。
type FeedStore interface {
	ListAuthorized(ctx context.Context) ([]model.Feed, error)
	FindByID(ctx context.Context, id uint) (*model.Feed, error)
	Create(ctx context.Context, feed *model.Feed) error
	Save(ctx context.Context, feed *model.Feed) error
	Delete(ctx context.Context, id uint) error
}

// AgendaStore 日程表数据访问接口。
//
// 事件的增删改都是单条 SQL 语句，不做读-改-写回，避免并发丢失更新。
type AgendaStore interface {
	List(ctx context.Context) ([]model.Agenda, error)
	ListByUser(ctx context.Context, userID uint) ([]model.Agenda, error)
	FindByID(ctx context.Context, id uint) (*model.Agenda, error)
	FindByUser(ctx context.Context, userID uint) (*model.Agenda, error)
	Create(ctx context.Context, agenda *model.Agenda) error
	AppendEvent(ctx context.Context, agendaID uint, event *model.Event) error
	// ReplaceEvent 原地替换指定事件，返回是否命中。
	ReplaceEvent(ctx context.Context, agendaID, eventID uint, event *model.Event) (bool, error)
	// DeleteEvent 删除指定事件，返回是否命中。
	DeleteEvent(ctx context.Context, agendaID, eventID uint) (bool, error)
}

// HabitStore 习惯记录数据访问接口。
type HabitStore interface {
	List(ctx context.Context) ([]model.Habit, error)
	FindByID(ctx context.Context, id uint) (*model.Habit, error)
	Create(ctx context.Context, habit *model.Habit) error
}

type dbUserStore struct {
	db *gorm.DB
}

func (s dbUserStore) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s dbUserStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s dbUserStore) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (s dbUserStore) CreateWithAgenda(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&model.Agenda{UserID: user.ID}).Error
	})
}

func (s dbUserStore) Update(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

type dbFeedStore struct {
	db *gorm.DB
}

func (s dbFeedStore) ListAuthorized(ctx context.Context) ([]model.Feed, error) {
	feeds := []model.Feed{}
	if err := s.db.WithContext(ctx).
		Where("is_authorized = ?", true).
		Order("id ASC").
		Find(&feeds).Error; err != nil {
		return nil, err
	}
	return feeds, nil
}

func (s dbFeedStore) FindByID(ctx context.Context, id uint) (*model.Feed, error) {
	var feed model.Feed
	if err := s.db.WithContext(ctx).First(&feed, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &feed, nil
}

func (s dbFeedStore) Create(ctx context.Context, feed *model.Feed) error {
	return s.db.WithContext(ctx).Create(feed).Error
}

func (s dbFeedStore) Save(ctx context.Context, feed *model.Feed) error {
	return s.db.WithContext(ctx).Save(feed).Error
}

func (s dbFeedStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&model.Feed{}, id).Error
}

type dbAgendaStore struct {
	db *gorm.DB
}

// eventOrder 保证事件按插入顺序返回。
func eventOrder(tx *gorm.DB) *gorm.DB {
	return tx.Order("events.id ASC")
}

func (s dbAgendaStore) List(ctx context.Context) ([]model.Agenda, error) {
	agendas := []model.Agenda{}
	if err := s.db.WithContext(ctx).Preload("Events", eventOrder).Order("id ASC").Find(&agendas).Error; err != nil {
		return nil, err
	}
	return agendas, nil
}

func (s dbAgendaStore) ListByUser(ctx context.Context, userID uint) ([]model.Agenda, error) {
	agendas := []model.Agenda{}
	if err := s.db.WithContext(ctx).Preload("Events", eventOrder).Where("user_id = ?", userID).Find(&agendas).Error; err != nil {
		return nil, err
	}
	return agendas, nil
}

func (s dbAgendaStore) FindByID(ctx context.Context, id uint) (*model.Agenda, error) {
	var agenda model.Agenda
	if err := s.db.WithContext(ctx).Preload("Events", eventOrder).First(&agenda, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &agenda, nil
}

func (s dbAgendaStore) FindByUser(ctx context.Context, userID uint) (*model.Agenda, error) {
	var agenda model.Agenda
	if err := s.db.WithContext(ctx).Preload("Events", eventOrder).Where("user_id = ?", userID).First(&agenda).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &agenda, nil
}

func (s dbAgendaStore) Create(ctx context.Context, agenda *model.Agenda) error {
	return s.db.WithContext(ctx).Create(agenda).Error
}

func (s dbAgendaStore) AppendEvent(ctx context.Context, agendaID uint, event *model.Event) error {
	event.AgendaID = agendaID
	return s.db.WithContext(ctx).Create(event).Error
}

func (s dbAgendaStore) ReplaceEvent(ctx context.Context, agendaID, eventID uint, event *model.Event) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Event{}).
		Where("id = ? AND agenda_id = ?", eventID, agendaID).
		Updates(map[string]interface{}{
			"initial_date": event.InitialDate,
			"final_date":   event.FinalDate,
			"title":        event.Title,
			"content":      event.Content,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL 在字段无变化时也报告 0 行，需要区分“不存在”和“无变化”
		var count int64
		if err := s.db.WithContext(ctx).Model(&model.Event{}).
			Where("id = ? AND agenda_id = ?", eventID, agendaID).
			Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	}
	return true, nil
}

func (s dbAgendaStore) DeleteEvent(ctx context.Context, agendaID, eventID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND agenda_id = ?", eventID, agendaID).
		Delete(&model.Event{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type dbHabitStore struct {
	db *gorm.DB
}

func (s dbHabitStore) List(ctx context.Context) ([]model.Habit, error) {
	habits := []model.Habit{}
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&habits).Error; err != nil {
		return nil, err
	}
	return habits, nil
}

func (s dbHabitStore) FindByID(ctx context.Context, id uint) (*model.Habit, error) {
	var habit model.Habit
	if err := s.db.WithContext(ctx).First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &habit, nil
}

func (s dbHabitStore) Create(ctx context.Context, habit *model.Habit) error {
	return s.db.WithContext(ctx).Create(habit).Error
}
