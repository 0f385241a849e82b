// Package sym defines canonical symbols for apparatus operations and
// system markers. These symbols are stable across CLI output and
// documentation.
package sym

// Primary operation symbols — one per top-level command.
const (
	Build   = "⊕" // build — aggregate packs into variant units
	Show    = "⊿" // show — render variant units for a scope
	Pending = "⊖" // pending — units behind an open gate
	Ack     = "⊙" // ack — acknowledge a unit for a session
)

// System infrastructure symbols.
const (
	DB   = "⊔" // database/storage layer
	Pack = "⌺" // source pack
)

// entry binds a command to its glyph and description.
type entry struct {
	glyph       string
	command     string
	description string
}

var registry = []entry{
	{Build, "build", "Aggregate source packs into variant units"},
	{Show, "show", "Render variant units for a scope"},
	{Pending, "pending", "List units awaiting acknowledgement"},
	{Ack, "ack", "Acknowledge a variant unit for a session"},
	{DB, "db", "Database and storage operations"},
}

// ForCommand returns the glyph for a command name, or an empty string
// for unknown commands.
func ForCommand(command string) string {
	for _, e := range registry {
		if e.command == command {
			return e.glyph
		}
	}
	return ""
}

// Commands returns the command names that carry a glyph, in display
// order.
func Commands() []string {
	out := make([]string, 0, len(registry))
	for _, e := range registry {
		out = append(out, e.command)
	}
	return out
}
