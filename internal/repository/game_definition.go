package repository

import (
	"context"

	"github.com/wfunc/spin-engine/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameDefinitionRepository 远程游戏配置仓储接口
type GameDefinitionRepository interface {
	BaseRepository
	Upsert(ctx context.Context, def *models.GameDefinition) error
	Find(ctx context.Context, gameID string) (*models.GameDefinition, error)
	List(ctx context.Context) ([]*models.GameDefinition, error)
	SetEnabled(ctx context.Context, gameID string, enabled bool) error
}

type gameDefinitionRepo struct {
	*BaseRepo
}

// NewGameDefinitionRepository 创建游戏配置仓储
func NewGameDefinitionRepository(db *gorm.DB) GameDefinitionRepository {
	return &gameDefinitionRepo{BaseRepo: NewBaseRepo(db)}
}

// Upsert 按 game_id 插入或更新，更新时版本号加一
func (r *gameDefinitionRepo) Upsert(ctx context.Context, def *models.GameDefinition) error {
	if def.Version == 0 {
		def.Version = 1
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "game_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":       def.Name,
			"config":     def.Config,
			"enabled":    def.Enabled,
			"version":    gorm.Expr("game_definitions.version + 1"),
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(def).Error
}

// Find 按 game_id 查询，停用的记录同样返回，由调用方判断 Enabled
func (r *gameDefinitionRepo) Find(ctx context.Context, gameID string) (*models.GameDefinition, error) {
	var def models.GameDefinition
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		First(&def).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &def, nil
}

// List 查询所有游戏配置（含停用）
func (r *gameDefinitionRepo) List(ctx context.Context) ([]*models.GameDefinition, error) {
	var defs []*models.GameDefinition
	err := r.db.WithContext(ctx).
		Order("game_id").
		Find(&defs).Error
	return defs, err
}

// SetEnabled 启用或停用游戏
func (r *gameDefinitionRepo) SetEnabled(ctx context.Context, gameID string, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.GameDefinition{}).
		Where("game_id = ?", gameID).
		Update("enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
