package constants

import "time"

var APIConfig = struct {
	CatalogBaseURL  string
	SpriteBaseURL   string
	CatalogPageSize int
	RequestTimeout  time.Duration
	UserAgent       string
	MaxBodyBytes    int64
	MaxImageBytes   int64
}{
	CatalogBaseURL:  "https://pokeapi.co/api/v2",
	SpriteBaseURL:   "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon",
	CatalogPageSize: 20000,
	RequestTimeout:  30 * time.Second,
	UserAgent:       "palette-index-go/1.0",
	MaxBodyBytes:    16 << 20, // 16MB - 전체 목록 페이지 포함
	MaxImageBytes:   10 << 20, // 10MB
}

var RetryConfig = struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    5 * time.Second,
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}{
	FailureThreshold: 5,                // 5회 연속 실패 시 Circuit OPEN
	ResetTimeout:     30 * time.Second, // 재시도 대기 시간
}

var PaletteConfig = struct {
	SwatchCount    int
	BucketSize     int
	TargetSize     int
	AlphaThreshold int
	MaxSamples     int
	FallbackRGB    [3]int
}{
	SwatchCount:    3,
	BucketSize:     16,
	TargetSize:     128,
	AlphaThreshold: 180,
	MaxSamples:     12000, // stride = pixelCount / MaxSamples
	FallbackRGB:    [3]int{128, 128, 128},
}

var PipelineConfig = struct {
	Concurrency   int
	ProgressEvery int
	OutputPath    string
}{
	Concurrency:   6,
	ProgressEvery: 25,
	OutputPath:    "public/data/pokemon-index.json",
}

var CacheTTL = struct {
	Palette time.Duration
}{
	Palette: 30 * 24 * time.Hour, // 30일 - 추출 파라미터가 키에 포함됨
}
