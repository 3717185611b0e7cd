package printing

// PaperSize represents the paper size of a composed document
type PaperSize string

const (
	PaperSizeA3     PaperSize = "A3"     // 297mm x 420mm
	PaperSizeA4     PaperSize = "A4"     // 210mm x 297mm
	PaperSizeA5     PaperSize = "A5"     // 148mm x 210mm
	PaperSizeLetter PaperSize = "LETTER" // 216mm x 279mm
)

// IsValid checks if the PaperSize is a valid value
func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA3, PaperSizeA4, PaperSizeA5, PaperSizeLetter:
		return true
	}
	return false
}

// String returns the string representation of PaperSize
func (p PaperSize) String() string {
	return string(p)
}

// Dimensions returns the portrait paper dimensions in millimeters (width, height)
func (p PaperSize) Dimensions() (width, height float64) {
	switch p {
	case PaperSizeA3:
		return 297, 420
	case PaperSizeA5:
		return 148, 210
	case PaperSizeLetter:
		return 216, 279
	default:
		return 210, 297 // Default to A4
	}
}

// AllPaperSizes returns all valid PaperSize values
func AllPaperSizes() []PaperSize {
	return []PaperSize{PaperSizeA3, PaperSizeA4, PaperSizeA5, PaperSizeLetter}
}

// Orientation represents the page orientation
type Orientation string

const (
	OrientationPortrait  Orientation = "PORTRAIT"
	OrientationLandscape Orientation = "LANDSCAPE"
)

// IsValid checks if the Orientation is a valid value
func (o Orientation) IsValid() bool {
	switch o {
	case OrientationPortrait, OrientationLandscape:
		return true
	}
	return false
}

// String returns the string representation of Orientation
func (o Orientation) String() string {
	return string(o)
}

// OutputAction selects where a rendered artifact is emitted
type OutputAction string

const (
	OutputActionPrint    OutputAction = "print"    // inline viewer stream
	OutputActionDownload OutputAction = "download" // downloadable attachment
	OutputActionSave     OutputAction = "save"     // filesystem path
)

// IsValid checks if the OutputAction is a valid value
func (a OutputAction) IsValid() bool {
	switch a {
	case OutputActionPrint, OutputActionDownload, OutputActionSave:
		return true
	}
	return false
}

// String returns the string representation of OutputAction
func (a OutputAction) String() string {
	return string(a)
}

// IsStream returns true if the action writes to a response stream rather
// than to the filesystem
func (a OutputAction) IsStream() bool {
	return a == OutputActionPrint || a == OutputActionDownload
}

// Disposition returns the Content-Disposition type used for stream actions
func (a OutputAction) Disposition() string {
	if a == OutputActionDownload {
		return "attachment"
	}
	return "inline"
}
