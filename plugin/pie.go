package plugin

import (
	"time"

	"gopkg.in/mgo.v2/bson"
)

// Pie represents the breakdown chart on the patient card.  Each slice is one
// scoring category; its value is the number of points the category earned.
type Pie struct {
	Id      bson.ObjectId `bson:"_id" json:"id"`
	Slices  []Slice       `bson:"slices" json:"slices"`
	Patient string        `bson:"patient" json:"patient"`
	Created time.Time     `bson:"created" json:"created"`
}

// Slice represents a component that factors into the overall risk score.  In
// the chart, it appears as a slice in the pie.
type Slice struct {
	Name     string `bson:"name" json:"name"`
	Weight   int    `bson:"weight" json:"weight"`
	Value    int    `bson:"value" json:"value"`
	MaxValue int    `bson:"maxValue,omitempty" json:"maxValue,omitempty"`
}

// NewPie constructs a new pie for the given patient, sets the Created time to
// now, and generates a new ID.  Slices are initially empty.
func NewPie(patientID string) *Pie {
	pie := &Pie{}
	pie.Patient = patientID
	pie.Created = time.Now()
	pie.Id = bson.NewObjectId()
	return pie
}

// Clone creates a copy of the pie.  If generateNewID is true, it will give
// the clone a new identity.  Slices of the clone can be modified without
// affecting the original.
func (p *Pie) Clone(generateNewID bool) *Pie {
	cloned := *p
	if generateNewID {
		cloned.Id = bson.NewObjectId()
	}
	cloned.Slices = make([]Slice, len(p.Slices))
	copy(cloned.Slices, p.Slices)
	return &cloned
}

// UpdateSliceValue finds the slice with the given name and updates its value.
func (p *Pie) UpdateSliceValue(name string, value int) {
	for i := range p.Slices {
		if p.Slices[i].Name == name {
			p.Slices[i].Value = value
			return
		}
	}
}

// TotalValues sums up all the values in the slices.
func (p *Pie) TotalValues() int {
	total := 0
	for i := range p.Slices {
		total += p.Slices[i].Value
	}
	return total
}
