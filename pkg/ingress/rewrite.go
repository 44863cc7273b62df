package ingress

import (
	"regexp"
	"strings"
)

var (
	attrPattern  = regexp.MustCompile(`(src|href|action)=(["'])(/[^"']*)(["'])`)
	cssURLPattern = regexp.MustCompile(`url\((['"]?)(/[^'")]*)(['"]?)\)`)
)

// rewriteHTML injects a <base href> tag after the first <head> literal
// and rewrites every absolute-path URL in src=/href=/action= attributes
// or url(...) CSS expressions to be prefixed with the branch's base
// path, so a service mounted at /tentacle/<branch>/ resolves its own
// assets as if it were served from the origin. Already-absolute URLs
// (protocol-relative "//..." or already base-prefixed) are left alone,
// making the rewrite idempotent.
func rewriteHTML(body, branch string) string {
	base := "/tentacle/" + branch + "/"

	body = injectBaseHref(body, base)

	body = attrPattern.ReplaceAllStringFunc(body, func(m string) string {
		sub := attrPattern.FindStringSubmatch(m)
		attr, openQuote, path, closeQuote := sub[1], sub[2], sub[3], sub[4]
		if skipRewrite(path, base) {
			return m
		}
		return attr + "=" + openQuote + base + strings.TrimPrefix(path, "/") + closeQuote
	})

	body = cssURLPattern.ReplaceAllStringFunc(body, func(m string) string {
		sub := cssURLPattern.FindStringSubmatch(m)
		openQuote, path, closeQuote := sub[1], sub[2], sub[3]
		if skipRewrite(path, base) {
			return m
		}
		return "url(" + openQuote + base + strings.TrimPrefix(path, "/") + closeQuote + ")"
	})

	return body
}

func skipRewrite(path, base string) bool {
	return strings.HasPrefix(path, "//") || strings.HasPrefix(path, base)
}

func injectBaseHref(body, base string) string {
	tag := "<base href='" + base + "'>"
	if strings.Contains(body, tag) {
		return body
	}

	idx := strings.Index(body, "<head>")
	if idx < 0 {
		return body
	}
	insertAt := idx + len("<head>")
	return body[:insertAt] + tag + body[insertAt:]
}
