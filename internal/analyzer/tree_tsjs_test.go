//go:build treesitter

package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/pkg/types"
)

func TestTreeAnalyzerClassAndMethods(t *testing.T) {
	src := `import { ApiClient } from './api/client';

export class UserService extends BaseService {
  constructor(client) {
    super();
    this.client = client;
  }

  async fetchUser(id) {
    const raw = await this.client.getJSON(buildUserURL(id));
    return normalizeUser(raw);
  }
}

export async function loadAllUsers(svc) {
  const ids = await listUserIds();
  return svc.hydrate(ids);
}
`
	a := NewTreeAnalyzer(types.LangTypeScript)
	parsed, err := a.Parse("src/services/user_service.ts", []byte(src))
	require.NoError(t, err)

	imp := findImport(t, parsed, "./api/client")
	assert.Equal(t, []string{"ApiClient"}, imp.Names)
	assert.True(t, imp.IsRelative)

	cls := findClass(t, parsed, "UserService")
	assert.Equal(t, "BaseService", cls.ParentClass)
	assert.True(t, cls.IsExport)

	fetch := findFn(t, parsed, "fetchUser")
	assert.True(t, fetch.IsAsync)
	assert.Equal(t, "UserService.fetchUser", fetch.QualifiedName)
	assert.ElementsMatch(t, []string{"getJSON", "buildUserURL", "normalizeUser"}, fetch.Calls)

	load := findFn(t, parsed, "loadAllUsers")
	assert.True(t, load.IsExport)
	assert.True(t, load.IsAsync)
	assert.Empty(t, load.ClassName)
	assert.ElementsMatch(t, []string{"listUserIds", "hydrate"}, load.Calls)
}

func TestTreeAnalyzerArrowAndNested(t *testing.T) {
	src := `const cacheKey = (id) => prefix(id);

function outer() {
  const inner = () => {
    deepCall();
  };
  return inner;
}
`
	a := NewTreeAnalyzer(types.LangJavaScript)
	parsed, err := a.Parse("src/nested.js", []byte(src))
	require.NoError(t, err)

	key := findFn(t, parsed, "cacheKey")
	assert.ElementsMatch(t, []string{"prefix"}, key.Calls)

	inner := findFn(t, parsed, "inner")
	assert.ElementsMatch(t, []string{"deepCall"}, inner.Calls)

	outer := findFn(t, parsed, "outer")
	assert.Empty(t, outer.Calls, "calls inside owned nested functions are not the outer function's")
}

func TestTreeAnalyzerHeritageStripsImplements(t *testing.T) {
	src := `class Widget extends React.Component implements Renderable {
  render() {
    return draw(this.props);
  }
}
`
	a := NewTreeAnalyzer(types.LangTypeScript)
	parsed, err := a.Parse("src/components/Widget.tsx", []byte(src))
	require.NoError(t, err)

	cls := findClass(t, parsed, "Widget")
	assert.Equal(t, "React.Component", cls.ParentClass)
}
