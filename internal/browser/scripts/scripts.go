// internal/browser/scripts/scripts.go
// Package scripts holds the page-side JavaScript shared by the driver
// adapters. Node scripts are evaluated with `this` bound to the element.
package scripts

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const (
	// NodeState reports {attached, visible} for the bound node.
	NodeState = `function() {
	if (!this.isConnected) return {attached: false, visible: false};
	const r = this.getBoundingClientRect();
	const s = window.getComputedStyle(this);
	const visible = r.width > 0 && r.height > 0 && s.display !== 'none' && s.visibility !== 'hidden' && s.opacity !== '0';
	return {attached: true, visible: visible};
}`

	// NodeText returns the rendered text, failing on detached nodes.
	NodeText = `function() {
	if (!this.isConnected) throw new Error('Node is detached from document');
	return (this.innerText !== undefined && this.innerText !== null) ? this.innerText : (this.textContent || '');
}`

	// NodeAttr distinguishes an absent attribute from an empty one. "value"
	// reads the live property of form controls, not the markup default.
	NodeAttr = `function(name) {
	if (name === 'value' && 'value' in this) return {ok: true, value: String(this.value)};
	if (!this.hasAttribute(name)) return {ok: false, value: ''};
	return {ok: true, value: this.getAttribute(name)};
}`

	// NodeClear focuses an input and empties it, firing an input event so
	// framework bindings notice.
	NodeClear = `function() {
	if (!this.isConnected) throw new Error('Node is detached from document');
	this.focus();
	if ('value' in this) {
		this.value = '';
		this.dispatchEvent(new Event('input', {bubbles: true}));
	}
}`
)

// Page scripts, evaluated as plain expressions.
const (
	// ClearStorage empties local and session storage. about: pages have no
	// storage and throw on access.
	ClearStorage = `(() => {
	if (window.location.protocol === 'about:') return false;
	try { window.localStorage.clear(); } catch (e) {}
	try { window.sessionStorage.clear(); } catch (e) {}
	return true;
})()`

	// ReadyState returns document.readyState.
	ReadyState = `document.readyState`

	// Title returns document.title.
	Title = `document.title`
)

// State is the decoded result of NodeState.
type State struct {
	Attached bool `json:"attached"`
	Visible  bool `json:"visible"`
}

// AttrResult is the decoded result of NodeAttr.
type AttrResult struct {
	OK    bool   `json:"ok"`
	Value string `json:"value"`
}

// Expression turns a page script into a single evaluable expression. Without
// args the script is any expression; with args it must be a function
// expression and is invoked with the JSON encoded args. undefined is
// normalized to null so every result decodes.
func Expression(script string, args []any) (string, error) {
	if len(args) == 0 {
		return fmt.Sprintf("(() => { const __r = (%s); return __r === undefined ? null : __r; })()", script), nil
	}
	encoded := make([]string, 0, len(args))
	for i, a := range args {
		b, err := jsoniter.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("encoding script argument %d: %w", i, err)
		}
		encoded = append(encoded, string(b))
	}
	return fmt.Sprintf("(() => { const __r = (%s)(%s); return __r === undefined ? null : __r; })()", script, strings.Join(encoded, ", ")), nil
}
