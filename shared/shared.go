package shared

import (
	"fmt"
	"log"
	"os"
	"os/exec"

	"github.com/brentp/go-athenaeum/tempclean"
)

const Prefix = "[mutect2parallel]"

type Logger struct {
	*log.Logger
}

func (l *Logger) Write(b []byte) (int, error) {
	l.Logger.Print(string(b))
	return len(b), nil
}

var Slogger *Logger

func init() {
	l := log.New(os.Stderr, Prefix+" ", log.Ldate|log.Ltime)
	Slogger = &Logger{Logger: l}
}

// HasProg returns "Y" if the program is found on the $PATH.
func HasProg(p string) string {
	if _, err := exec.LookPath(p); err == nil {
		return "Y"
	}
	return " "
}

// Fatalf reports an input error that stops the run, removes temporary files
// and exits.
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	Slogger.Printf("[Error] %s. Exiting.", msg)
	tempclean.Cleanup()
	os.Exit(1)
}

// Warnf logs a non-fatal failure.
func Warnf(format string, args ...interface{}) {
	Slogger.Printf("[Warning] "+format, args...)
}
