package excel

// ExcelConfig locates an empirical effect-size distribution in a workbook
type ExcelConfig struct {
	FilePath string `json:"file_path" yaml:"file_path"`
	Sheet    string `json:"sheet,omitempty" yaml:"sheet,omitempty"`   // default: first sheet
	Column   string `json:"column,omitempty" yaml:"column,omitempty"` // header name; default: only column
}
