package domain

const (
	StructureQRCode = "qr_code"
	StructureLogo   = "logo"
	StructurePhoto  = "photo"
)

// StructureClass is the outcome of the block-contrast heuristic.
type StructureClass struct {
	Kind          string  `json:"kind"`
	ContrastRatio float64 `json:"contrast_ratio"`
	Blocks        int     `json:"blocks"`
}

func ValidStructure(kind string) bool {
	switch kind {
	case StructureQRCode, StructureLogo, StructurePhoto:
		return true
	default:
		return false
	}
}
