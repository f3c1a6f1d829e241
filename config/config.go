package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

// 환경변수로만 주입되는 민감 값들의 키.
const (
	EnvPrismicAccessToken  = "PRISMIC_ACCESS_TOKEN"
	EnvPrismicWebhookToken = "PRISMIC_WEBHOOK_SECRET"
	EnvSessionSecret       = "SESSION_SECRET"
	EnvMongoURI            = "MONGO_URI"
	EnvKafkaBrokers        = "KAFKA_BOOTSTRAP_SERVERS"
	EnvLogLevel            = "LOG_LEVEL"
	EnvInstanceID          = "INSTANCE_ID"
)

type AppConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Site    SiteConfig    `yaml:"site"`
	Prismic PrismicConfig `yaml:"prismic"`
	Pages   PagesConfig   `yaml:"pages"`
	Preview PreviewConfig `yaml:"preview"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Kafka   KafkaConfig   `yaml:"kafka"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type ServerConfig struct {
	Addr               string   `yaml:"addr"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// SiteConfig 는 피드/사이트맵에 노출되는 사이트 메타데이터다.
type SiteConfig struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// PrismicConfig 는 헤드리스 CMS(Prismic) 저장소 접속 정보다.
// AccessToken, WebhookSecret 은 yaml 이 아닌 환경변수에서 읽는다.
type PrismicConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	DocumentType  string        `yaml:"document_type"`
	PageSize      int           `yaml:"page_size"`
	Timeout       time.Duration `yaml:"timeout"`
	RefCacheTTL   time.Duration `yaml:"ref_cache_ttl"`
	AccessToken   string        `yaml:"-"`
	WebhookSecret string        `yaml:"-"`
}

// PagesConfig 는 페이지 재생성(revalidate)과 사전 생성 정책을 정의한다.
type PagesConfig struct {
	// RevalidateSeconds 가 지난 페이지는 stale 로 간주되어 백그라운드에서 재생성된다.
	RevalidateSeconds int `yaml:"revalidate_seconds"`
	// StaticPathsLimit 는 사전 생성할 최신 포스트 uid 개수다. 나머지는 첫 요청 시 생성된다.
	StaticPathsLimit     int           `yaml:"static_paths_limit"`
	PrerenderConcurrency int           `yaml:"prerender_concurrency"`
	PrerenderSchedule    string        `yaml:"prerender_schedule"`
	RegenerateTimeout    time.Duration `yaml:"regenerate_timeout"`
	FeedSize             int           `yaml:"feed_size"`
}

func (p PagesConfig) RevalidateInterval() time.Duration {
	return time.Duration(p.RevalidateSeconds) * time.Second
}

type PreviewConfig struct {
	SessionName   string `yaml:"session_name"`
	MaxAgeSeconds int    `yaml:"max_age_seconds"`
	SecureCookie  bool   `yaml:"secure_cookie"`
	SessionSecret string `yaml:"-"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// Enabled 는 URI 가 비어 있으면 스냅샷 저장소 없이 메모리 캐시만 사용함을 뜻한다.
func (m MongoConfig) Enabled() bool {
	return m.URI != ""
}

type KafkaConfig struct {
	BootstrapServers string `yaml:"bootstrap_servers"`
	// GroupID 는 컨슈머 그룹 이름의 접두사다. 실제 그룹은 ConsumerGroupID 를 쓴다.
	GroupID string `yaml:"group_id"`
	// InstanceID 가 비어 있으면 호스트 이름과 임의 접미사로 채운다.
	InstanceID string `yaml:"instance_id"`
	MaxRetry   int    `yaml:"max_retry"`
}

// ConsumerGroupID 는 이 프로세스 전용 컨슈머 그룹이다. 페이지 캐시는 프로세스마다 따로
// 있으므로 콘텐츠 이벤트는 모든 인스턴스가 각자 받아야 한다.
func (k KafkaConfig) ConsumerGroupID() string {
	if k.InstanceID == "" {
		return k.GroupID
	}
	return k.GroupID + "-" + k.InstanceID
}

// Enabled 가 false 면 인메모리 이벤트 버스를 사용한다.
func (k KafkaConfig) Enabled() bool {
	return k.BootstrapServers != ""
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	c, err := Load(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}
	config = &c
}

// Load 는 주어진 yaml 파일을 읽고 환경변수 오버라이드와 기본값을 적용한다.
func Load(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, err
	}

	var c AppConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return AppConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	c.applyEnv()
	c.applyDefaults()
	return c, nil
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func (c *AppConfig) applyEnv() {
	c.Prismic.AccessToken = os.Getenv(EnvPrismicAccessToken)
	c.Prismic.WebhookSecret = os.Getenv(EnvPrismicWebhookToken)
	c.Preview.SessionSecret = os.Getenv(EnvSessionSecret)
	if v := os.Getenv(EnvMongoURI); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv(EnvKafkaBrokers); v != "" {
		c.Kafka.BootstrapServers = v
	}
	if v := os.Getenv(EnvInstanceID); v != "" {
		c.Kafka.InstanceID = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("REVALIDATE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pages.RevalidateSeconds = n
		}
	}
}

func (c *AppConfig) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Prismic.DocumentType == "" {
		c.Prismic.DocumentType = "posts"
	}
	if c.Prismic.PageSize <= 0 {
		c.Prismic.PageSize = 20
	}
	if c.Prismic.Timeout <= 0 {
		c.Prismic.Timeout = 10 * time.Second
	}
	if c.Prismic.RefCacheTTL <= 0 {
		c.Prismic.RefCacheTTL = 5 * time.Second
	}
	if c.Pages.RevalidateSeconds <= 0 {
		c.Pages.RevalidateSeconds = 300
	}
	if c.Pages.StaticPathsLimit <= 0 {
		c.Pages.StaticPathsLimit = 2
	}
	if c.Pages.PrerenderConcurrency <= 0 {
		c.Pages.PrerenderConcurrency = 4
	}
	if c.Pages.PrerenderSchedule == "" {
		c.Pages.PrerenderSchedule = "@every 30m"
	}
	if c.Pages.RegenerateTimeout <= 0 {
		c.Pages.RegenerateTimeout = 15 * time.Second
	}
	if c.Pages.FeedSize <= 0 {
		c.Pages.FeedSize = 20
	}
	if c.Preview.SessionName == "" {
		c.Preview.SessionName = "spacetraveling_preview"
	}
	if c.Preview.MaxAgeSeconds <= 0 {
		c.Preview.MaxAgeSeconds = 3600
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "spacetraveling"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "spacetraveling-blog"
	}
	if c.Kafka.InstanceID == "" {
		c.Kafka.InstanceID = defaultInstanceID()
	}
	if c.Kafka.MaxRetry <= 0 {
		c.Kafka.MaxRetry = 3
	}
}

// 같은 호스트에서 여러 프로세스를 띄워도 겹치지 않도록 uuid 접미사를 붙인다.
func defaultInstanceID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	host, err := os.Hostname()
	if err != nil || host == "" {
		return suffix
	}
	return host + "-" + suffix
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
