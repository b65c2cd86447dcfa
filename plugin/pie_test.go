package plugin

import (
	"encoding/json"
	"time"

	. "gopkg.in/check.v1"
	"gopkg.in/mgo.v2/bson"
)

type PieSuite struct {
	Pie *Pie
}

var _ = Suite(&PieSuite{})

func (p *PieSuite) SetUpTest(c *C) {
	p.Pie = NewPie("p001")
	p.Pie.Slices = []Slice{
		{Name: "HbA1c", Weight: 34, MaxValue: 4, Value: 3},
		{Name: "BMI", Weight: 25, MaxValue: 3, Value: 2},
	}
}

func (p *PieSuite) TestNewPie(c *C) {
	pie := NewPie("p002")
	c.Assert(pie.Id.Valid(), Equals, true)
	c.Assert(pie.Patient, Equals, "p002")
	c.Assert(time.Since(pie.Created) < time.Second, Equals, true)
	c.Assert(pie.Slices, HasLen, 0)
	c.Assert(pie.TotalValues(), Equals, 0)
}

func (p *PieSuite) TestTotalValues(c *C) {
	c.Assert(p.Pie.TotalValues(), Equals, 5)
}

func (p *PieSuite) TestUpdateSliceValue(c *C) {
	p.Pie.UpdateSliceValue("BMI", 3)
	p.Pie.UpdateSliceValue("Weight", 1)
	c.Assert(p.Pie.Slices, DeepEquals, []Slice{
		{Name: "HbA1c", Weight: 34, MaxValue: 4, Value: 3},
		{Name: "BMI", Weight: 25, MaxValue: 3, Value: 3},
	})
	c.Assert(p.Pie.TotalValues(), Equals, 6)
}

func (p *PieSuite) TestPieClone(c *C) {
	clone := p.Pie.Clone(true)
	c.Assert(clone.Id, Not(Equals), p.Pie.Id)
	c.Assert(clone.Created, Equals, p.Pie.Created)
	c.Assert(clone.Patient, Equals, p.Pie.Patient)
	c.Assert(clone.Slices, DeepEquals, p.Pie.Slices)

	clone.UpdateSliceValue("HbA1c", 4)
	c.Assert(clone.Slices[0].Value, Equals, 4)
	c.Assert(p.Pie.Slices[0].Value, Equals, 3)

	c.Assert(p.Pie.Clone(false).Id, Equals, p.Pie.Id)
}

func (p *PieSuite) TestPieEncodings(c *C) {
	data, err := json.Marshal(p.Pie)
	c.Assert(err, IsNil)
	c.Assert(string(data), Matches, `.*"id":"`+p.Pie.Id.Hex()+`".*`)
	c.Assert(string(data), Matches, `.*"maxValue":4.*`)

	raw, err := bson.Marshal(p.Pie)
	c.Assert(err, IsNil)
	decoded := &Pie{}
	c.Assert(bson.Unmarshal(raw, decoded), IsNil)
	c.Assert(decoded.Id, Equals, p.Pie.Id)
	c.Assert(decoded.Slices, DeepEquals, p.Pie.Slices)
}
