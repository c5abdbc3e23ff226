package types

type PresetName string

const (
	PresetYouTube PresetName = "youtube"
	PresetXCom    PresetName = "xcom"
	PresetCustom  PresetName = "custom"
)

// Progress is a job update as seen by callers of the public package
type Progress struct {
	JobID   string
	Stage   string
	Percent int
	Status  string
	Error   string
}

// LinePlacement is one overlay line evaluated for a concrete frame height.
// Values are in pixels; Bottom is the distance from the bottom edge to the
// bottom of the text.
type LinePlacement struct {
	Line     string
	Text     string
	X        float64
	Bottom   float64
	FontSize float64
	Outline  int
}
