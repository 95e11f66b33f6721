package curriculum

// Lesson is one required topic of a bundle. Every bundle carries exactly one
// question per lesson, in catalog order.
type Lesson struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// Catalog is the ordered set of required lessons.
type Catalog struct {
	lessons []Lesson
	byID    map[string]int
}

// NewCatalog builds a catalog preserving the given order. Duplicate IDs keep
// their first position.
func NewCatalog(lessons []Lesson) *Catalog {
	c := &Catalog{byID: make(map[string]int, len(lessons))}
	for _, l := range lessons {
		if l.ID == "" {
			continue
		}
		if _, dup := c.byID[l.ID]; dup {
			continue
		}
		c.byID[l.ID] = len(c.lessons)
		c.lessons = append(c.lessons, l)
	}
	return c
}

// Lessons returns the lessons in fixed order.
func (c *Catalog) Lessons() []Lesson {
	out := make([]Lesson, len(c.lessons))
	copy(out, c.lessons)
	return out
}

// IDs returns the lesson IDs in fixed order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.lessons))
	for i, l := range c.lessons {
		ids[i] = l.ID
	}
	return ids
}

// Len returns the number of required lessons.
func (c *Catalog) Len() int {
	return len(c.lessons)
}

// Get returns a lesson by ID.
func (c *Catalog) Get(id string) (Lesson, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Lesson{}, false
	}
	return c.lessons[i], true
}

// Name returns the display name for a lesson ID, or the ID itself when unknown.
func (c *Catalog) Name(id string) string {
	if l, ok := c.Get(id); ok && l.Name != "" {
		return l.Name
	}
	return id
}
