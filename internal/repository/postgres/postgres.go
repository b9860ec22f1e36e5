package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/reminder-engine/internal/repository"
)

type mappingRepository struct {
	db *sqlx.DB
}

type actionLogRepository struct {
	db *sqlx.DB
}

type actionConfigRepository struct {
	db *sqlx.DB
}

type errorLogRepository struct {
	db *sqlx.DB
}

type migrationStateRepository struct {
	db *sqlx.DB
}

func NewMappingRepository(db *sqlx.DB) repository.MappingRepository {
	return &mappingRepository{db: db}
}

func NewActionLogRepository(db *sqlx.DB) repository.ActionLogRepository {
	return &actionLogRepository{db: db}
}

func NewActionConfigRepository(db *sqlx.DB) repository.ActionConfigRepository {
	return &actionConfigRepository{db: db}
}

func NewErrorLogRepository(db *sqlx.DB) repository.ErrorLogRepository {
	return &errorLogRepository{db: db}
}

func NewMigrationStateRepository(db *sqlx.DB) repository.MigrationStateRepository {
	return &migrationStateRepository{db: db}
}
