package model

// Presentation holds the display attributes shared by every view of a category.
type Presentation struct {
	ID    Category `json:"id"`
	Name  string   `json:"name"`
	Color string   `json:"color"`
}

var presentations = map[Category]Presentation{
	CategoryWork:    {ID: CategoryWork, Name: "Work", Color: "#B88EC8"},
	CategoryLife:    {ID: CategoryLife, Name: "Life", Color: "#90E8C1"},
	CategoryFamily:  {ID: CategoryFamily, Name: "Family", Color: "#FFB6C1"},
	CategoryHoliday: {ID: CategoryHoliday, Name: "Holiday", Color: "#FDEE89"},
}

// Valid reports whether c is one of the closed category set.
func (c Category) Valid() bool {
	_, ok := presentations[c]
	return ok
}

// Presentation returns the display attributes for c. Unknown categories get
// the holiday colour, matching how views fall through their colour switch.
func (c Category) Presentation() Presentation {
	if p, ok := presentations[c]; ok {
		return p
	}
	p := presentations[CategoryHoliday]
	p.ID = c
	p.Name = string(c)
	return p
}

// Presentations returns the lookup table in display order.
func Presentations() []Presentation {
	out := make([]Presentation, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, presentations[c])
	}
	return out
}
