package infrastructure

import (
	"raffler/application"
	"raffler/database"
	"raffler/domain/interfaces"
	"raffler/repository"
)

// UnitOfWorkFactory creates units of work that pair a database transaction
// with a transactional publisher flushed after commit
type UnitOfWorkFactory struct {
	repoFactory interface {
		CreateWithPublisher(interfaces.TransactionalEventPublisher) application.UnitOfWork
	}
	eventPublisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory for the given raffle
func NewUnitOfWorkFactory(db *database.DB, raffleID int64, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		repoFactory:    repository.NewUnitOfWorkFactory(db, raffleID),
		eventPublisher: eventPublisher,
	}
}

// Create returns a new UnitOfWork with its own transactional publisher
func (f *UnitOfWorkFactory) Create() application.UnitOfWork {
	return f.repoFactory.CreateWithPublisher(NewNATSTransactionalPublisher(f.eventPublisher))
}
