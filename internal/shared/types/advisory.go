package types

// Advisory codes
const (
	AdvisoryAbsolutePath  = "absolute_path"
	AdvisorySecretValue   = "secret_value"
	AdvisorySecretFile    = "secret_file"
	AdvisoryShadowedFile  = "shadowed_file"
	AdvisorySkippedFile   = "skipped_file"
	AdvisorySymbolMissing = "symbol_not_found"
)

// Advisory is a non-blocking finding; it never fails a build.
type Advisory struct {
	Code    string `json:"code"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}
