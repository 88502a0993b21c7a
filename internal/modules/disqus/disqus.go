// Package disqus provides the disqus and disqus_count template functions.
//
// Pages opt out with "disqus: false" in their front matter. The forum is
// configured with modules.disqus.shortname and modules.disqus.developer.
package disqus

import (
	"fmt"
	"html/template"
	"strings"

	"git.home.luguber.info/inful/blogbuilder/internal/config"
	"git.home.luguber.info/inful/blogbuilder/internal/extension"
)

// Name is the active_modules entry enabling this module.
const Name = "disqus"

const defaultShortname = "YOUR-DISQUS-SHORTNAME"

const threadTemplate = `
<div id="disqus_thread"></div>
<script type="text/javascript">
    var disqus_shortname = '%s';
    %s
    (function() {
        var dsq = document.createElement('script'); dsq.type = 'text/javascript'; dsq.async = true;
        dsq.src = 'https://' + disqus_shortname + '.disqus.com/embed.js';
        (document.getElementsByTagName('head')[0] || document.getElementsByTagName('body')[0]).appendChild(dsq);
    })();
</script>
<noscript>Please enable JavaScript to view the <a href="https://disqus.com/?ref_noscript">comments powered by Disqus.</a></noscript>
<a href="https://disqus.com" class="dsq-brlink">blog comments powered by <span class="logo-disqus">Disqus</span></a>
`

const countTemplate = `
<script type="text/javascript">
    var disqus_shortname = '%s';
    (function() {
        var cnt = document.createElement('script'); cnt.type = 'text/javascript'; cnt.async = true;
        cnt.src = 'https://' + disqus_shortname + '.disqus.com/count.js';
        (document.getElementsByTagName('head')[0] || document.getElementsByTagName('body')[0]).appendChild(cnt);
    })();
</script>
`

// Module implements extension.Module.
type Module struct {
	shortname string
	developer bool
}

// New creates an unconfigured module.
func New() *Module {
	return &Module{}
}

// Name implements extension.Module.
func (m *Module) Name() string { return Name }

// Setup registers the template functions.
func (m *Module) Setup(sc *extension.SetupContext) error {
	m.shortname = fmt.Sprint(sc.Config.RootGet("modules.disqus.shortname", defaultShortname))
	m.developer = truthy(sc.Config.RootGet("modules.disqus.developer", false))

	if err := sc.Registry.RegisterTemplateFunc("disqus", m.Thread); err != nil {
		return err
	}
	return sc.Registry.RegisterTemplateFunc("disqus_count", m.Count)
}

// Thread returns the comment thread embed for a page config.
func (m *Module) Thread(page *config.Config) template.HTML {
	if !enabled(page) {
		return ""
	}
	var vars []string
	if id := identifier(page); id != "" {
		vars = append(vars, fmt.Sprintf("var disqus_identifier = '%s';", template.JSEscapeString(id)))
	}
	if url := page.String("disqus_url", ""); url != "" {
		vars = append(vars, fmt.Sprintf("var disqus_url = '%s';", template.JSEscapeString(url)))
	}
	if m.developer {
		vars = append(vars, "var disqus_developer = 1;")
	}
	// #nosec G203 -- interpolated values are JS-escaped.
	return template.HTML(fmt.Sprintf(threadTemplate, template.JSEscapeString(m.shortname), strings.Join(vars, "\n    ")))
}

// Count returns the comment count script for a page config.
func (m *Module) Count(page *config.Config) template.HTML {
	if !enabled(page) {
		return ""
	}
	// #nosec G203 -- the shortname is JS-escaped.
	return template.HTML(fmt.Sprintf(countTemplate, template.JSEscapeString(m.shortname)))
}

func enabled(page *config.Config) bool {
	if page == nil {
		return true
	}
	return truthy(page.Get("disqus", true))
}

// identifier prefers disqus_id and falls back to post_id.
func identifier(page *config.Config) string {
	if page == nil {
		return ""
	}
	for _, key := range []string{"disqus_id", "post_id"} {
		if id := page.String(key, ""); id != "" {
			return id
		}
	}
	return ""
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(t) {
		case "", "0", "false", "no", "off":
			return false
		}
		return true
	default:
		return true
	}
}
