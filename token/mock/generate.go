package mock

//go:generate go install github.com/golang/mock/mockgen@v1.6.0
//go:generate mockgen -package mock -destination ./fetcher.mock.go github.com/jrsteele09/go-btp-connectivity/token Fetcher
