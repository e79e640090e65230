package websearch

import "errors"

var (
	ErrMissingAPIKey = errors.New("search API key is required")

	ErrMissingSearchID = errors.New("google search engine id (cx) is required")

	ErrUnsupportedProvider = errors.New("unsupported search provider")

	// ErrNoResults 搜索成功但没有结果，按"未匹配"处理
	ErrNoResults = errors.New("no search results found")

	// ErrRateLimited 被限流或出现验证码，总是同时匹配 models.ErrTransient
	ErrRateLimited = errors.New("rate limit exceeded")

	ErrProviderUnavailable = errors.New("search provider is currently unavailable")
)
