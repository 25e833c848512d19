package fingerprint

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"

	"github.com/yourusername/yt-audio-extract/internal/domain"
)

// WebGL getParameter enums for UNMASKED_VENDOR_WEBGL / UNMASKED_RENDERER_WEBGL
const (
	unmaskedVendor   = 37445
	unmaskedRenderer = 37446
)

const overrideTemplate = `(() => {
  const define = (target, prop, value) => {
    try {
      Object.defineProperty(target, prop, { get: () => value, configurable: true });
    } catch (e) {}
  };
  if (%t) {
    define(navigator, 'webdriver', undefined);
  }
  // real PluginArray entries are array-like over their mime types
  const plugins = %s.map((p) => {
    const plugin = {
      name: p.name,
      filename: p.filename,
      description: p.description,
      length: p.mimeTypes.length,
      item: (i) => plugin[i] || null,
    };
    p.mimeTypes.forEach((m, i) => {
      plugin[i] = { type: m.type, suffixes: m.suffixes, description: m.description, enabledPlugin: plugin };
    });
    return plugin;
  });
  define(navigator, 'plugins', plugins);
  define(navigator, 'languages', %s);
  const patch = (ctor) => {
    if (!ctor || !ctor.prototype) {
      return;
    }
    const original = ctor.prototype.getParameter;
    ctor.prototype.getParameter = function (parameter) {
      if (parameter === %d) {
        return %s;
      }
      if (parameter === %d) {
        return %s;
      }
      return original.apply(this, [parameter]);
    };
  };
  if (typeof WebGLRenderingContext !== 'undefined') {
    patch(WebGLRenderingContext);
  }
  if (typeof WebGL2RenderingContext !== 'undefined') {
    patch(WebGL2RenderingContext);
  }
})();`

// OverrideScript renders the overrides as a script suitable for
// Page.addScriptToEvaluateOnNewDocument.
func OverrideScript(o domain.NavigatorOverrides) string {
	plugins := o.Plugins
	if plugins == nil {
		plugins = []domain.Plugin{}
	}
	languages := o.Languages
	if languages == nil {
		languages = []string{}
	}
	return fmt.Sprintf(overrideTemplate,
		o.HideWebdriver,
		mustJSON(plugins),
		mustJSON(languages),
		unmaskedVendor, mustJSON(o.WebGLVendor),
		unmaskedRenderer, mustJSON(o.WebGLRenderer),
	)
}

// CompileCheck parses src without running it
func CompileCheck(name, src string) error {
	if _, err := goja.Compile(name, src, false); err != nil {
		return fmt.Errorf("failed to compile %s: %w", name, err)
	}
	return nil
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
