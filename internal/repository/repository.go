// Package repository implements the persistence contract on PostgreSQL.
package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// repositoryImpl is the concrete implementation of Repository interface.
type repositoryImpl struct {
	db       *sqlx.DB
	lead     LeadRepository
	approval ApprovalRepository
	event    EventRepository
	contact  ContactRepository
	dnc      DncRepository
	counter  CounterRepository
}

// NewRepository creates a new repository instance.
func NewRepository(db *sqlx.DB) Repository {
	return &repositoryImpl{
		db:       db,
		lead:     NewLeadRepository(db),
		approval: NewApprovalRepository(db),
		event:    NewEventRepository(db),
		contact:  NewContactRepository(db),
		dnc:      NewDncRepository(db),
		counter:  NewCounterRepository(db),
	}
}

func (r *repositoryImpl) Lead() LeadRepository         { return r.lead }
func (r *repositoryImpl) Approval() ApprovalRepository { return r.approval }
func (r *repositoryImpl) Event() EventRepository       { return r.event }
func (r *repositoryImpl) Contact() ContactRepository   { return r.contact }
func (r *repositoryImpl) Dnc() DncRepository           { return r.dnc }
func (r *repositoryImpl) Counter() CounterRepository   { return r.counter }

// Ping checks if the database connection is healthy.
func (r *repositoryImpl) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return r.db.PingContext(ctx)
}
