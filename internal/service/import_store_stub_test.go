package service

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/trs-ewc-import/internal/models"
)

type importStoreStub struct {
	persons map[string][]models.Person
	alerts  map[string]bool
	routes  map[string][]models.RouteToProfessionalStatus

	header           *models.IntegrationTransaction
	records          []models.IntegrationTransactionRecord
	events           []models.Event
	createdRoutes    []models.RouteToProfessionalStatus
	inductionUpdates []models.Person
	qtsDates         map[string]time.Time
	counterFlushes   int

	begun      int
	committed  bool
	rolledBack bool
	panicOnTrn string
	failRecord error

	failInductionFor string
	failRouteFor     string
	panicAfterUpdate bool
	savepoints       []string
	mark             stubSavepoint
}

type stubSavepoint struct {
	records, events, routes, updates int
	qtsDates                         map[string]time.Time
}

func newImportStoreStub() *importStoreStub {
	return &importStoreStub{
		persons:  make(map[string][]models.Person),
		alerts:   make(map[string]bool),
		routes:   make(map[string][]models.RouteToProfessionalStatus),
		qtsDates: make(map[string]time.Time),
	}
}

func (s *importStoreStub) beginner() ImportTxBeginner {
	return ImportTxBeginnerFunc(func(ctx context.Context) (ImportStore, error) {
		s.begun++
		return s, nil
	})
}

func (s *importStoreStub) addPerson(p models.Person) {
	if p.Status == "" {
		p.Status = models.PersonStatusActive
	}
	if p.InductionStatus == "" {
		p.InductionStatus = models.InductionStatusNone
	}
	s.persons[p.Trn] = append(s.persons[p.Trn], p)
}

func (s *importStoreStub) FindActiveByTRN(ctx context.Context, trn string) ([]models.Person, error) {
	if s.panicOnTrn != "" && trn == s.panicOnTrn {
		panic("lookup exploded")
	}
	found := make([]models.Person, len(s.persons[trn]))
	copy(found, s.persons[trn])
	return found, nil
}

func (s *importStoreStub) HasOpenAlert(ctx context.Context, personID string) (bool, error) {
	return s.alerts[personID], nil
}

func (s *importStoreStub) UpdateInduction(ctx context.Context, person *models.Person) error {
	if s.failInductionFor != "" && person.Trn == s.failInductionFor {
		return fmt.Errorf("update induction for %s: connection reset", person.Trn)
	}
	s.inductionUpdates = append(s.inductionUpdates, *person)
	if s.panicAfterUpdate {
		panic("event encoder exploded")
	}
	return nil
}

func (s *importStoreStub) SetQtsDate(ctx context.Context, personID string, qtsDate time.Time, updatedOn time.Time) error {
	s.qtsDates[personID] = qtsDate
	return nil
}

func (s *importStoreStub) ListRoutesByPerson(ctx context.Context, personID string) ([]models.RouteToProfessionalStatus, error) {
	return s.routes[personID], nil
}

func (s *importStoreStub) CreateRoute(ctx context.Context, route *models.RouteToProfessionalStatus) error {
	if s.failRouteFor != "" && route.PersonID == s.failRouteFor {
		return fmt.Errorf("insert route: unique violation")
	}
	s.createdRoutes = append(s.createdRoutes, *route)
	return nil
}

func (s *importStoreStub) CreateTransaction(ctx context.Context, it *models.IntegrationTransaction) error {
	it.ID = 100
	s.header = it
	return nil
}

func (s *importStoreStub) UpdateTransactionCounts(ctx context.Context, it *models.IntegrationTransaction) error {
	s.counterFlushes++
	return nil
}

func (s *importStoreStub) CreateTransactionRecord(ctx context.Context, record *models.IntegrationTransactionRecord) error {
	if s.failRecord != nil {
		return s.failRecord
	}
	record.ID = int64(len(s.records) + 1)
	s.records = append(s.records, *record)
	return nil
}

func (s *importStoreStub) AppendEvent(ctx context.Context, event *models.Event) error {
	s.events = append(s.events, *event)
	return nil
}

func (s *importStoreStub) SavepointRow(ctx context.Context) error {
	s.savepoints = append(s.savepoints, "savepoint")
	dates := make(map[string]time.Time, len(s.qtsDates))
	for k, v := range s.qtsDates {
		dates[k] = v
	}
	s.mark = stubSavepoint{records: len(s.records), events: len(s.events), routes: len(s.createdRoutes), updates: len(s.inductionUpdates), qtsDates: dates}
	return nil
}

func (s *importStoreStub) ReleaseRow(ctx context.Context) error {
	s.savepoints = append(s.savepoints, "release")
	return nil
}

func (s *importStoreStub) RollbackRow(ctx context.Context) error {
	s.savepoints = append(s.savepoints, "rollback")
	s.records = s.records[:s.mark.records]
	s.events = s.events[:s.mark.events]
	s.createdRoutes = s.createdRoutes[:s.mark.routes]
	s.inductionUpdates = s.inductionUpdates[:s.mark.updates]
	s.qtsDates = s.mark.qtsDates
	return nil
}

func (s *importStoreStub) Commit() error {
	if s.committed {
		return fmt.Errorf("already committed")
	}
	s.committed = true
	return nil
}

func (s *importStoreStub) Rollback() error {
	if !s.committed {
		s.rolledBack = true
	}
	return nil
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
