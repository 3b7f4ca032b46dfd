package cli

type ArgumentSpec struct {
	Position int
	Template string
}

type OptionSpec struct {
	Template string
	Default  string
}
