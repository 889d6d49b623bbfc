package talker

// Point is a position in the presenter's screen space.
type Point struct {
	X int
	Y int
}

// Camera offsets screen positions into the presenter's world space.
type Camera struct {
	X int
	Y int
}

// World converts a screen position into world space.
func (c Camera) World(p Point) Point {
	return Point{X: p.X + c.X, Y: p.Y + c.Y}
}

// Presenter renders a talker's current line and answers link hit queries.
type Presenter interface {
	Display(text string)
	// LinkAt returns the id of the link drawn under pos, if any.
	LinkAt(pos Point, cam Camera) (string, bool)
}

type nopPresenter struct{}

func (nopPresenter) Display(string) {}
func (nopPresenter) LinkAt(Point, Camera) (string, bool) { return "", false }
