package services

import (
	"context"
	"log"

	"github.com/aiwuxian/realm-chronicle/internal/models"
	"github.com/aiwuxian/realm-chronicle/internal/storage"
)

// MetaService 直接修改世界数值（运维/调试用），不推进张力、不生成事件
type MetaService struct {
	storage *storage.Storage
}

func NewMetaService(storage *storage.Storage) *MetaService {
	return &MetaService{storage: storage}
}

// UpdateState 覆盖玩家声望与势力力量，所有修改在一个事务中完成
func (ms *MetaService) UpdateState(ctx context.Context, override models.StateOverride) error {
	err := ms.storage.Update(ctx, func(tx *storage.Tx) error {
		if override.PlayerReputation != nil {
			if err := tx.SetReputation(ctx, *override.PlayerReputation); err != nil {
				return err
			}
		}

		for _, fp := range override.FactionPower {
			if err := tx.SetFactionPower(ctx, fp.FactionID, fp.Power); err != nil {
				return targetError(err)
			}
		}
		return nil
	})
	if err != nil {
		return storeFailure("覆盖世界状态", err)
	}

	if override.PlayerReputation != nil {
		log.Printf("🛠️ [状态] 玩家声望设为 %d\n", *override.PlayerReputation)
	}
	for _, fp := range override.FactionPower {
		log.Printf("🛠️ [状态] 势力 %d 力量设为 %d\n", fp.FactionID, fp.Power)
	}
	return nil
}
