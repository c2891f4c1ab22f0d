package downloads

import "fmt"

// Canonical vendor locations for source archives. Version discovery (which
// versions exist) lives outside the cache manager; these only format the
// download targets for a known version.
const (
	luaBaseURL      = "https://www.lua.org/ftp"
	luaTestsBaseURL = "https://www.lua.org/tests"
	luarocksBaseURL = "https://luarocks.github.io/luarocks/releases"
)

// SourceURLs returns the {type -> url} map for a version combination.
func SourceURLs(luaVersion, luarocksVersion, platform string) map[string]string {
	return map[string]string{
		"lua":       fmt.Sprintf("%s/lua-%s.tar.gz", luaBaseURL, luaVersion),
		"lua_tests": fmt.Sprintf("%s/lua-%s-tests.tar.gz", luaTestsBaseURL, luaVersion),
		"luarocks":  fmt.Sprintf("%s/luarocks-%s-%s.zip", luarocksBaseURL, luarocksVersion, platform),
	}
}

// SourceFilenames returns the {type -> filename} map for a version combination.
func SourceFilenames(luaVersion, luarocksVersion, platform string) map[string]string {
	return map[string]string{
		"lua":       fmt.Sprintf("lua-%s.tar.gz", luaVersion),
		"lua_tests": fmt.Sprintf("lua-%s-tests.tar.gz", luaVersion),
		"luarocks":  fmt.Sprintf("luarocks-%s-%s.zip", luarocksVersion, platform),
	}
}
