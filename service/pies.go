package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/intervention-engine/patientcard/plugin"
)

var (
	ErrPieNotFound  = errors.New("pie not found")
	ErrInvalidPieID = errors.New("bad ID format for requested pie, should be a BSON Id")
)

// PieSet separates the pies of loaded patients from the pies of ad-hoc
// scores, so scoring a record never drops the pie a loaded card links to.
type PieSet int

const (
	SnapshotPies PieSet = iota
	ScoredPies
)

// collection is the MongoDB collection holding the set.
func (s PieSet) collection() string {
	if s == ScoredPies {
		return "scored_pies"
	}
	return "pies"
}

// PieStore keeps the most recent pie for every patient in each set.
type PieStore interface {
	// Replace removes any pies stored in set for pie.Patient and stores pie.
	Replace(ctx context.Context, set PieSet, pie *plugin.Pie) error
	// Get returns the pie with the given hex id from any set.
	Get(ctx context.Context, id string) (*plugin.Pie, error)
}

type pieOwner struct {
	set     PieSet
	patient string
}

// MemoryPieStore is a PieStore for single-process deployments and tests.
type MemoryPieStore struct {
	mu      sync.RWMutex
	pies    map[bson.ObjectId]*plugin.Pie
	byOwner map[pieOwner]bson.ObjectId
}

func NewMemoryPieStore() *MemoryPieStore {
	return &MemoryPieStore{
		pies:    make(map[bson.ObjectId]*plugin.Pie),
		byOwner: make(map[pieOwner]bson.ObjectId),
	}
}

func (m *MemoryPieStore) Replace(ctx context.Context, set PieSet, pie *plugin.Pie) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	owner := pieOwner{set: set, patient: pie.Patient}
	if old, ok := m.byOwner[owner]; ok {
		delete(m.pies, old)
	}
	m.pies[pie.Id] = pie.Clone(false)
	m.byOwner[owner] = pie.Id
	return nil
}

func (m *MemoryPieStore) Get(ctx context.Context, id string) (*plugin.Pie, error) {
	if !bson.IsObjectIdHex(id) {
		return nil, ErrInvalidPieID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	pie, ok := m.pies[bson.ObjectIdHex(id)]
	if !ok {
		return nil, ErrPieNotFound
	}
	return pie.Clone(false), nil
}

// MongoPieStore keeps snapshot pies in the "pies" collection of a MongoDB
// database and ad-hoc pies in "scored_pies".  mgo predates context support, so
// the contexts are not consulted.
type MongoPieStore struct {
	session  *mgo.Session
	database string
}

// DialMongoPieStore connects to the MongoDB server at url.
func DialMongoPieStore(url, database string) (*MongoPieStore, error) {
	session, err := mgo.DialWithTimeout(url, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("can't connect to the database: %w", err)
	}
	return NewMongoPieStore(session, database), nil
}

func NewMongoPieStore(session *mgo.Session, database string) *MongoPieStore {
	return &MongoPieStore{session: session, database: database}
}

func (m *MongoPieStore) Replace(ctx context.Context, set PieSet, pie *plugin.Pie) error {
	session := m.session.Copy()
	defer session.Close()
	pieCollection := session.DB(m.database).C(set.collection())

	if _, err := pieCollection.RemoveAll(bson.M{"patient": pie.Patient}); err != nil {
		return fmt.Errorf("remove old pies for %s: %w", pie.Patient, err)
	}
	if err := pieCollection.Insert(pie); err != nil {
		return fmt.Errorf("insert pie for %s: %w", pie.Patient, err)
	}
	return nil
}

func (m *MongoPieStore) Get(ctx context.Context, id string) (*plugin.Pie, error) {
	if !bson.IsObjectIdHex(id) {
		return nil, ErrInvalidPieID
	}
	session := m.session.Copy()
	defer session.Close()

	for _, set := range []PieSet{SnapshotPies, ScoredPies} {
		pie := &plugin.Pie{}
		err := session.DB(m.database).C(set.collection()).FindId(bson.ObjectIdHex(id)).One(pie)
		if err == mgo.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find pie %s: %w", id, err)
		}
		return pie, nil
	}
	return nil, ErrPieNotFound
}

func (m *MongoPieStore) Close() {
	m.session.Close()
}
