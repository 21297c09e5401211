package checker

import (
	"github.com/fatih/color"
	"go.uber.org/zap"
)

// Logger encapsulates a Logger and module which it belongs to.
type Logger struct {
	*zap.SugaredLogger
	module string
}

// Module returns (stylised) module name.
func (l *Logger) Module() string {
	return l.module
}

// moduleColours styles the module names in the log.
var moduleColours = map[string]func(string, ...interface{}) string{
	"checker": color.WhiteString,
	"cfg":     color.RedString,
	Definite:  color.GreenString,
	Reach:     color.BlueString,
	DeadCode:  color.YellowString,
	CopyProp:  color.CyanString,
	Nullness:  color.MagentaString,
}

// For returns a logger for module sharing the output of l.
func (l *Logger) For(module string) *Logger {
	name := module
	if style, ok := moduleColours[module]; ok && styleModules {
		name = style("%-8s", module)
	}
	return &Logger{SugaredLogger: l.SugaredLogger, module: name}
}

// Named returns the underlying logger named after the module, for the
// packages that log through a plain *zap.SugaredLogger.
func (l *Logger) Named() *zap.SugaredLogger {
	return l.SugaredLogger.Named(l.module)
}
