package global

var (
	Version        = "0.0.1"
	BuildTime      = "none"
	Verbose        = false
	ConfigFilename = "engine.yaml"

	// LabelNamespace prefixes every identity label the engine stamps on
	// images and containers it owns.
	LabelNamespace = "org.autodeployr"
)
