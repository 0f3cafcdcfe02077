package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContent_UnboundedCacheMap(t *testing.T) {
	src := `class Registry {
    // private static Map<String, Object> OLD = new HashMap<>();
    /*
     * static Map<String, Object> ALSO_OLD = new HashMap<>();
     */
    private static final Map<String, Object> CACHE = new ConcurrentHashMap<>();
    private static List<String> NAMES = new ArrayList<>();
}`
	issues := analyze(t, src)

	maps := byRule(issues, "UNBOUNDED_CACHE_MAP")
	require.Len(t, maps, 1, "commented-out declarations are ignored")
	assert.Equal(t, 6, maps[0].Line)
	assert.Contains(t, maps[0].Evidence, "Map<String, Object> CACHE")

	lists := byRule(issues, "UNBOUNDED_CACHE_LIST")
	require.Len(t, lists, 1)
	assert.Equal(t, 7, lists[0].Line)
}

func TestContent_ExceptionSwallow(t *testing.T) {
	src := `class A {
    void m() {
        try {
            run();
        } catch (IOException e) { e.printStackTrace(); }
    }
}`
	issues := byRule(analyze(t, src), "EXCEPTION_SWALLOW")
	require.Len(t, issues, 1)
	assert.Equal(t, 5, issues[0].Line)
}

func TestCacheNoExpire_Guard(t *testing.T) {
	unbounded := `class A {
    Cache<String, String> c = Caffeine.newBuilder().build();
}`
	issues := byRule(analyze(t, unbounded), "CACHE_NO_EXPIRE")
	require.Len(t, issues, 1)
	assert.Equal(t, 2, issues[0].Line)

	bounded := `class A {
    Cache<String, String> c = Caffeine.newBuilder()
        .expireAfterWrite(Duration.ofMinutes(5))
        .build();
}`
	assert.Empty(t, byRule(analyze(t, bounded), "CACHE_NO_EXPIRE"))
}

func TestContent_HTTPClient(t *testing.T) {
	src := `class A {
    HttpClient client = HttpClient.newHttpClient();
}`
	issues := byRule(analyze(t, src), "HTTP_CLIENT_CHECK_TIMEOUT")
	require.Len(t, issues, 1)
	assert.Equal(t, 2, issues[0].Line)
}
