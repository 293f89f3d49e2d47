package podtest

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"regexp"
	"runtime"
	"strings"
)

// ErrorWithStacktrace is a failure reported through T.Errorf, along with where it was reported
// from.
type ErrorWithStacktrace struct {
	Message    string
	Stacktrace []StacktraceInfo
}

type StacktraceInfo struct {
	FileName string
	Package  string
	Function string
	Line     int
}

func (e ErrorWithStacktrace) Error() string { return e.Message }

func (s StacktraceInfo) String() string {
	return fmt.Sprintf("%s.%s (%s:%d)", s.Package, s.Function, s.FileName, s.Line)
}

const maxStackDepth = 64

// testifyTracePrefix matches the "Error Trace:" block that testify puts before its message.
var testifyTracePrefix = regexp.MustCompile(`^(?s:\s*Error Trace:.*\sError:\s*)`)

// scopePackage is the import path of this package; its frames never appear in a stacktrace.
var scopePackage, _ = splitFunctionName(runtime.FuncForPC(reflect.ValueOf(splitFunctionName).Pointer()).Name())

// transformError turns a reported failure into the error stored on the result.
func transformError(err error, stacktrace []StacktraceInfo) error {
	message := err.Error()
	if strings.Contains(message, "Error Trace:") {
		message = strings.TrimSpace(testifyTracePrefix.ReplaceAllLiteralString(message, ""))
	}
	if len(stacktrace) == 0 {
		return errors.New(message)
	}
	return ErrorWithStacktrace{Message: message, Stacktrace: stacktrace}
}

// getStacktrace describes the calling test code, from the caller of getStacktrace up to the
// test function. Frames of this package, of testify, and of functions marked with T.Helper are
// left out.
func getStacktrace(helperFns []string) []StacktraceInfo {
	pcs := make([]uintptr, maxStackDepth)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(2, pcs)])
	var ret []StacktraceInfo
	for {
		frame, more := frames.Next()
		pkg, fn := splitFunctionName(frame.Function)
		if pkg == scopePackage && strings.HasPrefix(fn, "invokeTest") {
			break
		}
		if !hiddenFrame(pkg, frame.Function, helperFns) {
			ret = append(ret, StacktraceInfo{
				FileName: filepath.Base(frame.File),
				Package:  pkg,
				Function: fn,
				Line:     frame.Line,
			})
		}
		if !more {
			break
		}
	}
	return ret
}

func hiddenFrame(pkg, fullName string, helperFns []string) bool {
	if pkg == scopePackage || strings.HasPrefix(pkg, "github.com/stretchr/testify/") {
		return true
	}
	for _, h := range helperFns {
		if h == fullName {
			return true
		}
	}
	return false
}

// splitFunctionName splits a runtime function name like "example.com/a/b.(*T).Run" into
// "example.com/a/b" and "(*T).Run".
func splitFunctionName(fullName string) (pkg, fn string) {
	lastSlash := strings.LastIndex(fullName, "/")
	dot := strings.Index(fullName[lastSlash+1:], ".")
	if dot < 0 {
		return fullName, ""
	}
	pkg = fullName[:lastSlash+1+dot]
	return pkg, fullName[len(pkg)+1:]
}
