// internal/browser/scripts/scripts_test.go
package scripts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpression(t *testing.T) {
	t.Run("PlainExpression", func(t *testing.T) {
		expr, err := Expression("document.readyState", nil)
		require.NoError(t, err)
		assert.Equal(t, "(() => { const __r = (document.readyState); return __r === undefined ? null : __r; })()", expr)
	})

	t.Run("FunctionWithArgs", func(t *testing.T) {
		expr, err := Expression("(sel, n) => document.querySelectorAll(sel).length >= n", []any{`a[href="/x"]`, 2})
		require.NoError(t, err)
		assert.Contains(t, expr, `(sel, n) => document.querySelectorAll(sel).length >= n)("a[href=\"/x\"]", 2)`)
	})

	t.Run("UnencodableArg", func(t *testing.T) {
		_, err := Expression("(x) => x", []any{make(chan int)})
		assert.ErrorContains(t, err, "argument 0")
	})
}
