package models

// FormatGroup buckets tournament formats for ranking purposes. Anything that
// is not 1v1 or 2v2 is treated as a team (3v3) format.
type FormatGroup string

const (
	FormatGroup1v1 FormatGroup = "1v1"
	FormatGroup2v2 FormatGroup = "2v2"
	FormatGroup3v3 FormatGroup = "3v3"
)

var FormatGroups = []FormatGroup{FormatGroup1v1, FormatGroup2v2, FormatGroup3v3}

func GroupForFormat(format string) FormatGroup {
	switch format {
	case string(FormatGroup1v1):
		return FormatGroup1v1
	case string(FormatGroup2v2):
		return FormatGroup2v2
	default:
		return FormatGroup3v3
	}
}

func (g FormatGroup) Valid() bool {
	return g == FormatGroup1v1 || g == FormatGroup2v2 || g == FormatGroup3v3
}
