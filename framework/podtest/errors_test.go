package podtest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformErrorStripsTestifyTrace(t *testing.T) {
	testifyMessage := "\n\tError Trace:\trunner_test.go:42\n\tError:      \tNot equal: \n\t            \texpected: 1\n"
	err := transformError(errors.New(testifyMessage), nil)
	assert.Equal(t, "Not equal: \n\t            \texpected: 1", err.Error())
}

func TestTransformErrorAttachesStacktrace(t *testing.T) {
	stack := []StacktraceInfo{{FileName: "a_test.go", Package: "example.com/x", Function: "TestA", Line: 3}}
	err := transformError(errors.New("boom"), stack)
	es, ok := err.(ErrorWithStacktrace)
	assert.True(t, ok)
	assert.Equal(t, "boom", es.Error())
	assert.Equal(t, "example.com/x.TestA (a_test.go:3)", es.Stacktrace[0].String())
}

func TestSplitFunctionName(t *testing.T) {
	p, f := splitFunctionName("github.com/octopod/octopod/framework/podtest.(*T).Errorf")
	assert.Equal(t, "github.com/octopod/octopod/framework/podtest", p)
	assert.Equal(t, "(*T).Errorf", f)

	p, f = splitFunctionName("main")
	assert.Equal(t, "main", p)
	assert.Equal(t, "", f)

	assert.Equal(t, "github.com/octopod/octopod/framework/podtest", scopePackage)
}

func TestStacktraceLeavesOutHelpers(t *testing.T) {
	var stack []StacktraceInfo
	helperFunc(func() {
		stack = getStacktrace([]string{"testing.tRunner"})
	})
	for _, s := range stack {
		assert.NotEqual(t, scopePackage, s.Package)
		assert.NotEqual(t, "tRunner", s.Function)
	}
}

func helperFunc(action func()) {
	action()
}
