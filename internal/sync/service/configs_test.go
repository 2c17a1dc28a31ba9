package service

import (
	"idsync/internal/sync/models"
	id "idsync/pkg/domain"
	dErrors "idsync/pkg/domain-errors"
)

func (s *SyncRunnerSuite) TestCreateConfig() {
	runner := s.newRunner(nil)

	s.Run("assigns an id when none is given", func() {
		cfg := &models.SyncConfig{
			Name:                 "fresh",
			SystemID:             s.systemID,
			EntityType:           id.EntityTypeIdentity,
			CorrelationAttribute: "username",
			Enabled:              true,
			LinkedAction:         models.LinkedIgnore,
			UnlinkedAction:       models.UnlinkedLink,
			MissingEntityAction:  models.MissingEntityCreateEntity,
			MissingAccountAction: models.MissingAccountIgnore,
		}
		s.Require().NoError(runner.CreateConfig(s.ctx, cfg))
		s.False(cfg.ID.IsZero())
		s.False(cfg.CreatedAt.IsZero())

		stored, err := runner.GetConfig(s.ctx, cfg.ID)
		s.Require().NoError(err)
		s.Equal("fresh", stored.Name)
	})

	s.Run("keeps a caller-provided id", func() {
		want := id.NewSyncConfigID()
		cfg := &models.SyncConfig{
			ID:                   want,
			Name:                 "preset",
			SystemID:             s.systemID,
			EntityType:           id.EntityTypeIdentity,
			CorrelationAttribute: "username",
			Enabled:              true,
			LinkedAction:         models.LinkedIgnore,
			UnlinkedAction:       models.UnlinkedLink,
			MissingEntityAction:  models.MissingEntityCreateEntity,
			MissingAccountAction: models.MissingAccountIgnore,
		}
		s.Require().NoError(runner.CreateConfig(s.ctx, cfg))
		s.Equal(want, cfg.ID)
	})

	s.Run("incomplete config is rejected", func() {
		err := runner.CreateConfig(s.ctx, &models.SyncConfig{Name: ""})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("unknown actions are rejected", func() {
		cfg := &models.SyncConfig{
			Name:                 "bad-actions",
			SystemID:             s.systemID,
			EntityType:           id.EntityTypeIdentity,
			CorrelationAttribute: "username",
			LinkedAction:         models.LinkedAction("EXPLODE"),
			UnlinkedAction:       models.UnlinkedLink,
			MissingEntityAction:  models.MissingEntityIgnore,
			MissingAccountAction: models.MissingAccountIgnore,
		}
		err := runner.CreateConfig(s.ctx, cfg)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *SyncRunnerSuite) TestGetConfig() {
	runner := s.newRunner(nil)
	_, err := runner.GetConfig(s.ctx, id.NewSyncConfigID())
	s.True(dErrors.HasCode(err, dErrors.CodeSyncNotFound))
}

func (s *SyncRunnerSuite) TestUpdateConfig() {
	runner := s.newRunner(nil)

	s.Run("edit lands and preserves creation time", func() {
		cfg := s.createConfig(nil)
		created := cfg.CreatedAt

		edited := *cfg
		edited.Name = "renamed"
		edited.LinkedAction = models.LinkedUpdateEntity
		s.Require().NoError(runner.UpdateConfig(s.ctx, &edited))

		stored, err := runner.GetConfig(s.ctx, cfg.ID)
		s.Require().NoError(err)
		s.Equal("renamed", stored.Name)
		s.Equal(models.LinkedUpdateEntity, stored.LinkedAction)
		s.Equal(created.Unix(), stored.CreatedAt.Unix())
	})

	s.Run("running config cannot be edited", func() {
		cfg := s.createConfig(nil)
		_, err := s.configs.TryAcquireRun(s.ctx, cfg.ID)
		s.Require().NoError(err)

		edited := *cfg
		edited.Name = "nope"
		err = runner.UpdateConfig(s.ctx, &edited)
		s.True(dErrors.HasCode(err, dErrors.CodeSyncIsRunning))
	})
}

func (s *SyncRunnerSuite) TestDeleteConfig() {
	runner := s.newRunner(nil)

	s.Run("deletes an idle config", func() {
		cfg := s.createConfig(nil)
		s.Require().NoError(runner.DeleteConfig(s.ctx, cfg.ID))
		_, err := runner.GetConfig(s.ctx, cfg.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeSyncNotFound))
	})

	s.Run("running config cannot be deleted", func() {
		cfg := s.createConfig(nil)
		_, err := s.configs.TryAcquireRun(s.ctx, cfg.ID)
		s.Require().NoError(err)
		err = runner.DeleteConfig(s.ctx, cfg.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeSyncIsRunning))
	})
}
