package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	clowder "github.com/redhatinsights/app-common-go/pkg/api/v1"
	"github.com/spf13/viper"
)

const (
	ENV_PREFIX = "EVENT_FORWARDER"

	URL_APP_NAME    = "URL_App_Name"
	URL_PATH_PREFIX = "URL_Path_Prefix"
	URL_BASE_PATH   = "URL_Base_Path"
	PROFILE         = "Enable_Profile"

	SHUTDOWN_TIMEOUT      = "Shutdown_Timeout"
	HTTP_SHUTDOWN_TIMEOUT = "HTTP_Shutdown_Timeout"
	RECEIVER_JWT_SECRET   = "Receiver_Jwt_Secret"

	BROKER_IMPL            = "Broker_Impl"
	BROKERS                = "Kafka_Brokers"
	TOPIC                  = "Kafka_Topic"
	BALANCER               = "Kafka_Balancer"
	BATCH_BYTES            = "Kafka_Batch_Bytes"
	SASL_MECHANISM         = "Kafka_Sasl_Mechanism"
	SASL_USERNAME          = "Kafka_Sasl_Username"
	SASL_PASSWORD          = "Kafka_Sasl_Password"
	KAFKA_CA               = "Kafka_Ca"
	TAIL_GROUP_ID          = "Kafka_Tail_Group_Id"
	DEFAULT_BROKER_ADDRESS = "localhost:29092"
	DEFAULT_TOPIC          = "user-events"

	NSQD_TCP_ADDR = "Nsqd_Tcp_Addr"
	NSQ_TOPIC     = "Nsq_Topic"

	SQS_QUEUE_URL = "Sqs_Queue_Url"
	AWS_REGION    = "Aws_Region"

	MQTT_BROKER_ADDRESS             = "Mqtt_Broker_Address"
	MQTT_TOPIC                      = "Mqtt_Topic"
	MQTT_CLIENT_ID                  = "Mqtt_Client_Id"
	MQTT_USERNAME                   = "Mqtt_Username"
	MQTT_PASSWORD                   = "Mqtt_Password"
	MQTT_CONNECT_TIMEOUT            = "Mqtt_Connect_Timeout"
	MQTT_PUBLISH_TIMEOUT            = "Mqtt_Publish_Timeout"
	MQTT_DISCONNECT_QUIESCE_TIME    = "Mqtt_Disconnect_Quiesce_Time"
	MQTT_BROKER_TLS_SKIP_VERIFY     = "Mqtt_Broker_Tls_Skip_Verify"
	MQTT_BROKER_TLS_CA_CERT_FILE    = "Mqtt_Broker_Tls_Ca_Cert_File"
	MQTT_BROKER_TLS_CLIENT_CERT     = "Mqtt_Broker_Tls_Client_Cert_File"
	MQTT_BROKER_TLS_CLIENT_KEY_FILE = "Mqtt_Broker_Tls_Client_Key_File"

	BATCH_SIZE               = "Batch_Size"
	BATCH_TIMEOUT            = "Batch_Timeout"
	MAX_RETRIES              = "Max_Retries"
	RETRY_BACKOFF_BASE       = "Retry_Backoff_Base"
	RETRY_BACKOFF_MULTIPLIER = "Retry_Backoff_Multiplier"
	RETRY_BACKOFF_MAX        = "Retry_Backoff_Max"
	QUEUE_CAPACITY           = "Queue_Capacity"
	BACKPRESSURE_POLICY      = "Backpressure_Policy"
	SUBMIT_TIMEOUT           = "Submit_Timeout"

	DEAD_LETTER_IMPL        = "Dead_Letter_Impl"
	DEAD_LETTER_FILE        = "Dead_Letter_File"
	DEAD_LETTER_TOPIC       = "Dead_Letter_Topic"
	DEAD_LETTER_DB_HOST     = "Dead_Letter_Db_Host"
	DEAD_LETTER_DB_PORT     = "Dead_Letter_Db_Port"
	DEAD_LETTER_DB_USER     = "Dead_Letter_Db_User"
	DEAD_LETTER_DB_PASSWORD = "Dead_Letter_Db_Password"
	DEAD_LETTER_DB_NAME     = "Dead_Letter_Db_Name"
	DEAD_LETTER_DB_SSL_MODE = "Dead_Letter_Db_Ssl_Mode"
	DEAD_LETTER_DB_SSL_CERT = "Dead_Letter_Db_Ssl_Root_Cert"

	INCLUDED_EVENT_TYPES = "Included_Event_Types"
	EVENT_TYPE_MAPPING   = "Event_Type_Mapping"
	INCLUDE_ADMIN_EVENTS = "Include_Admin_Events"

	USER_DIRECTORY_IMPL  = "User_Directory_Impl"
	USER_DIRECTORY_URL   = "User_Directory_Url"
	USER_DIRECTORY_TOKEN = "User_Directory_Token"
	USER_CACHE_SIZE      = "User_Cache_Size"
	USER_CACHE_TTL       = "User_Cache_Ttl"

	// milliseconds; enrichment runs on the identity server's request thread,
	// so a cache miss adds up to this much latency to that request
	USER_LOOKUP_TIMEOUT = "User_Lookup_Timeout"

	SERIALIZER_VALIDATE_SCHEMA = "Serializer_Validate_Schema"
)

const (
	BackpressureBlock = "block"
	BackpressureDrop  = "drop"
)

type Config struct {
	UrlAppName          string
	UrlPathPrefix       string
	UrlBasePath         string
	Profile             bool
	ShutdownTimeout     time.Duration `validate:"gt=0"`
	HttpShutdownTimeout time.Duration
	ReceiverJwtSecret   string

	BrokerImpl         string   `validate:"oneof=kafka nsq sqs mqtt log"`
	KafkaBrokers       []string `validate:"required_if=BrokerImpl kafka"`
	KafkaTopic         string   `validate:"required_if=BrokerImpl kafka"`
	KafkaBalancer      string
	KafkaBatchBytes    int
	KafkaSASLMechanism string
	KafkaUsername      string
	KafkaPassword      string
	KafkaCA            string
	KafkaTailGroupID   string

	NsqdTCPAddr string `validate:"required_if=BrokerImpl nsq"`
	NsqTopic    string `validate:"required_if=BrokerImpl nsq"`

	SqsQueueURL string `validate:"required_if=BrokerImpl sqs"`
	AwsRegion   string

	MqttBrokerAddress           string `validate:"required_if=BrokerImpl mqtt"`
	MqttTopic                   string `validate:"required_if=BrokerImpl mqtt"`
	MqttClientID                string
	MqttUsername                string
	MqttPassword                string
	MqttConnectTimeout          time.Duration
	MqttPublishTimeout          time.Duration
	MqttDisconnectQuiesceTime   uint
	MqttBrokerTlsSkipVerify     bool
	MqttBrokerTlsCACertFile     string
	MqttBrokerTlsClientCertFile string
	MqttBrokerTlsClientKeyFile  string

	BatchSize              int           `validate:"gt=0"`
	BatchTimeout           time.Duration `validate:"gt=0"`
	MaxRetries             int           `validate:"gte=0"`
	RetryBackoffBase       time.Duration `validate:"gt=0"`
	RetryBackoffMultiplier float64       `validate:"gte=1"`
	RetryBackoffMax        time.Duration `validate:"gtefield=RetryBackoffBase"`
	QueueCapacity          int           `validate:"gt=0"`
	BackpressurePolicy     string        `validate:"oneof=block drop"`
	SubmitTimeout          time.Duration `validate:"gte=0"`

	DeadLetterImpl          string `validate:"oneof=file kafka postgres log"`
	DeadLetterFile          string `validate:"required_if=DeadLetterImpl file"`
	DeadLetterTopic         string `validate:"required_if=DeadLetterImpl kafka"`
	DeadLetterDbHost        string `validate:"required_if=DeadLetterImpl postgres"`
	DeadLetterDbPort        int
	DeadLetterDbUser        string
	DeadLetterDbPassword    string
	DeadLetterDbName        string
	DeadLetterDbSslMode     string
	DeadLetterDbSslRootCert string

	IncludedEventTypes []string
	EventTypeMapping   map[string]string
	IncludeAdminEvents bool

	UserDirectoryImpl  string `validate:"oneof=none http"`
	UserDirectoryUrl   string `validate:"required_if=UserDirectoryImpl http"`
	UserDirectoryToken string
	UserCacheSize      int
	UserCacheTtl       time.Duration
	UserLookupTimeout  time.Duration `validate:"gte=0"`

	SerializerValidateSchema bool
}

func (c Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", URL_PATH_PREFIX, c.UrlPathPrefix)
	fmt.Fprintf(&b, "%s: %s\n", URL_APP_NAME, c.UrlAppName)
	fmt.Fprintf(&b, "%s: %s\n", URL_BASE_PATH, c.UrlBasePath)
	fmt.Fprintf(&b, "%s: %t\n", PROFILE, c.Profile)
	fmt.Fprintf(&b, "%s: %s\n", SHUTDOWN_TIMEOUT, c.ShutdownTimeout)
	fmt.Fprintf(&b, "%s: %s\n", HTTP_SHUTDOWN_TIMEOUT, c.HttpShutdownTimeout)
	fmt.Fprintf(&b, "%s: %t\n", RECEIVER_JWT_SECRET, c.ReceiverJwtSecret != "")
	fmt.Fprintf(&b, "%s: %s\n", BROKER_IMPL, c.BrokerImpl)
	fmt.Fprintf(&b, "%s: %s\n", BROKERS, c.KafkaBrokers)
	fmt.Fprintf(&b, "%s: %s\n", TOPIC, c.KafkaTopic)
	fmt.Fprintf(&b, "%s: %s\n", BALANCER, c.KafkaBalancer)
	fmt.Fprintf(&b, "%s: %d\n", BATCH_BYTES, c.KafkaBatchBytes)
	fmt.Fprintf(&b, "%s: %s\n", SASL_MECHANISM, c.KafkaSASLMechanism)
	fmt.Fprintf(&b, "%s: %s\n", SASL_USERNAME, c.KafkaUsername)
	fmt.Fprintf(&b, "%s: %s\n", TAIL_GROUP_ID, c.KafkaTailGroupID)
	fmt.Fprintf(&b, "%s: %s\n", NSQD_TCP_ADDR, c.NsqdTCPAddr)
	fmt.Fprintf(&b, "%s: %s\n", NSQ_TOPIC, c.NsqTopic)
	fmt.Fprintf(&b, "%s: %s\n", SQS_QUEUE_URL, c.SqsQueueURL)
	fmt.Fprintf(&b, "%s: %s\n", AWS_REGION, c.AwsRegion)
	fmt.Fprintf(&b, "%s: %s\n", MQTT_BROKER_ADDRESS, c.MqttBrokerAddress)
	fmt.Fprintf(&b, "%s: %s\n", MQTT_TOPIC, c.MqttTopic)
	fmt.Fprintf(&b, "%s: %s\n", MQTT_CLIENT_ID, c.MqttClientID)
	fmt.Fprintf(&b, "%s: %s\n", MQTT_CONNECT_TIMEOUT, c.MqttConnectTimeout)
	fmt.Fprintf(&b, "%s: %s\n", MQTT_PUBLISH_TIMEOUT, c.MqttPublishTimeout)
	fmt.Fprintf(&b, "%s: %d\n", BATCH_SIZE, c.BatchSize)
	fmt.Fprintf(&b, "%s: %s\n", BATCH_TIMEOUT, c.BatchTimeout)
	fmt.Fprintf(&b, "%s: %d\n", MAX_RETRIES, c.MaxRetries)
	fmt.Fprintf(&b, "%s: %s\n", RETRY_BACKOFF_BASE, c.RetryBackoffBase)
	fmt.Fprintf(&b, "%s: %f\n", RETRY_BACKOFF_MULTIPLIER, c.RetryBackoffMultiplier)
	fmt.Fprintf(&b, "%s: %s\n", RETRY_BACKOFF_MAX, c.RetryBackoffMax)
	fmt.Fprintf(&b, "%s: %d\n", QUEUE_CAPACITY, c.QueueCapacity)
	fmt.Fprintf(&b, "%s: %s\n", BACKPRESSURE_POLICY, c.BackpressurePolicy)
	fmt.Fprintf(&b, "%s: %s\n", SUBMIT_TIMEOUT, c.SubmitTimeout)
	fmt.Fprintf(&b, "%s: %s\n", DEAD_LETTER_IMPL, c.DeadLetterImpl)
	fmt.Fprintf(&b, "%s: %s\n", DEAD_LETTER_FILE, c.DeadLetterFile)
	fmt.Fprintf(&b, "%s: %s\n", DEAD_LETTER_TOPIC, c.DeadLetterTopic)
	fmt.Fprintf(&b, "%s: %s\n", DEAD_LETTER_DB_HOST, c.DeadLetterDbHost)
	fmt.Fprintf(&b, "%s: %d\n", DEAD_LETTER_DB_PORT, c.DeadLetterDbPort)
	fmt.Fprintf(&b, "%s: %s\n", DEAD_LETTER_DB_NAME, c.DeadLetterDbName)
	fmt.Fprintf(&b, "%s: %s\n", DEAD_LETTER_DB_SSL_MODE, c.DeadLetterDbSslMode)
	fmt.Fprintf(&b, "%s: %s\n", INCLUDED_EVENT_TYPES, c.IncludedEventTypes)
	fmt.Fprintf(&b, "%s: %s\n", EVENT_TYPE_MAPPING, c.EventTypeMapping)
	fmt.Fprintf(&b, "%s: %t\n", INCLUDE_ADMIN_EVENTS, c.IncludeAdminEvents)
	fmt.Fprintf(&b, "%s: %s\n", USER_DIRECTORY_IMPL, c.UserDirectoryImpl)
	fmt.Fprintf(&b, "%s: %s\n", USER_DIRECTORY_URL, c.UserDirectoryUrl)
	fmt.Fprintf(&b, "%s: %d\n", USER_CACHE_SIZE, c.UserCacheSize)
	fmt.Fprintf(&b, "%s: %s\n", USER_CACHE_TTL, c.UserCacheTtl)
	fmt.Fprintf(&b, "%s: %s\n", USER_LOOKUP_TIMEOUT, c.UserLookupTimeout)
	fmt.Fprintf(&b, "%s: %t\n", SERIALIZER_VALIDATE_SCHEMA, c.SerializerValidateSchema)

	return b.String()
}

// Validate checks the cross-field constraints declared on the Config struct tags.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func GetConfig() *Config {
	options := viper.New()

	options.SetDefault(URL_PATH_PREFIX, "api")
	options.SetDefault(URL_APP_NAME, "identity-event-forwarder")
	options.SetDefault(PROFILE, false)
	options.SetDefault(SHUTDOWN_TIMEOUT, 10)
	options.SetDefault(HTTP_SHUTDOWN_TIMEOUT, 2)
	options.SetDefault(RECEIVER_JWT_SECRET, "")

	options.SetDefault(BROKER_IMPL, "kafka")
	options.SetDefault(BROKERS, []string{DEFAULT_BROKER_ADDRESS})
	options.SetDefault(TOPIC, DEFAULT_TOPIC)
	options.SetDefault(BALANCER, "hash")
	options.SetDefault(BATCH_BYTES, 1048576)
	options.SetDefault(SASL_MECHANISM, "plain")
	options.SetDefault(TAIL_GROUP_ID, "identity-event-forwarder-tail")

	options.SetDefault(NSQD_TCP_ADDR, "nsqd:4150")
	options.SetDefault(NSQ_TOPIC, DEFAULT_TOPIC)

	options.SetDefault(AWS_REGION, "us-east-1")

	options.SetDefault(MQTT_BROKER_ADDRESS, "tcp://localhost:1883")
	options.SetDefault(MQTT_TOPIC, "identity/"+DEFAULT_TOPIC)
	options.SetDefault(MQTT_CLIENT_ID, "identity-event-forwarder")
	options.SetDefault(MQTT_CONNECT_TIMEOUT, 10)
	options.SetDefault(MQTT_PUBLISH_TIMEOUT, 5)
	options.SetDefault(MQTT_DISCONNECT_QUIESCE_TIME, 1000)
	options.SetDefault(MQTT_BROKER_TLS_SKIP_VERIFY, false)

	options.SetDefault(BATCH_SIZE, 100)
	options.SetDefault(BATCH_TIMEOUT, 250)
	options.SetDefault(MAX_RETRIES, 5)
	options.SetDefault(RETRY_BACKOFF_BASE, 200)
	options.SetDefault(RETRY_BACKOFF_MULTIPLIER, 2.0)
	options.SetDefault(RETRY_BACKOFF_MAX, 30000)
	options.SetDefault(QUEUE_CAPACITY, 10000)
	options.SetDefault(BACKPRESSURE_POLICY, BackpressureBlock)
	options.SetDefault(SUBMIT_TIMEOUT, 50)

	options.SetDefault(DEAD_LETTER_IMPL, "file")
	options.SetDefault(DEAD_LETTER_FILE, "identity-events-dead-letter.jsonl")
	options.SetDefault(DEAD_LETTER_TOPIC, DEFAULT_TOPIC+".dlq")
	options.SetDefault(DEAD_LETTER_DB_HOST, "localhost")
	options.SetDefault(DEAD_LETTER_DB_PORT, 5432)
	options.SetDefault(DEAD_LETTER_DB_USER, "insights")
	options.SetDefault(DEAD_LETTER_DB_PASSWORD, "insights")
	options.SetDefault(DEAD_LETTER_DB_NAME, "identity-event-forwarder")
	options.SetDefault(DEAD_LETTER_DB_SSL_MODE, "disable")
	options.SetDefault(DEAD_LETTER_DB_SSL_CERT, "db-ca.crt")

	options.SetDefault(INCLUDED_EVENT_TYPES, []string{"REGISTER"})
	options.SetDefault(EVENT_TYPE_MAPPING, map[string]string{})
	options.SetDefault(INCLUDE_ADMIN_EVENTS, false)

	options.SetDefault(USER_DIRECTORY_IMPL, "none")
	options.SetDefault(USER_DIRECTORY_URL, "")
	options.SetDefault(USER_DIRECTORY_TOKEN, "")
	options.SetDefault(USER_CACHE_SIZE, 1024)
	options.SetDefault(USER_CACHE_TTL, 300)
	options.SetDefault(USER_LOOKUP_TIMEOUT, 100)

	options.SetDefault(SERIALIZER_VALIDATE_SCHEMA, false)

	options.SetEnvPrefix(ENV_PREFIX)
	options.AutomaticEnv()

	cfg := &Config{
		UrlPathPrefix:       options.GetString(URL_PATH_PREFIX),
		UrlAppName:          options.GetString(URL_APP_NAME),
		UrlBasePath:         buildUrlBasePath(options.GetString(URL_PATH_PREFIX), options.GetString(URL_APP_NAME)),
		Profile:             options.GetBool(PROFILE),
		ShutdownTimeout:     options.GetDuration(SHUTDOWN_TIMEOUT) * time.Second,
		HttpShutdownTimeout: options.GetDuration(HTTP_SHUTDOWN_TIMEOUT) * time.Second,
		ReceiverJwtSecret:   options.GetString(RECEIVER_JWT_SECRET),

		BrokerImpl:         options.GetString(BROKER_IMPL),
		KafkaBrokers:       options.GetStringSlice(BROKERS),
		KafkaTopic:         options.GetString(TOPIC),
		KafkaBalancer:      options.GetString(BALANCER),
		KafkaBatchBytes:    options.GetInt(BATCH_BYTES),
		KafkaSASLMechanism: options.GetString(SASL_MECHANISM),
		KafkaUsername:      options.GetString(SASL_USERNAME),
		KafkaPassword:      options.GetString(SASL_PASSWORD),
		KafkaCA:            options.GetString(KAFKA_CA),
		KafkaTailGroupID:   options.GetString(TAIL_GROUP_ID),

		NsqdTCPAddr: options.GetString(NSQD_TCP_ADDR),
		NsqTopic:    options.GetString(NSQ_TOPIC),

		SqsQueueURL: options.GetString(SQS_QUEUE_URL),
		AwsRegion:   options.GetString(AWS_REGION),

		MqttBrokerAddress:           options.GetString(MQTT_BROKER_ADDRESS),
		MqttTopic:                   options.GetString(MQTT_TOPIC),
		MqttClientID:                options.GetString(MQTT_CLIENT_ID),
		MqttUsername:                options.GetString(MQTT_USERNAME),
		MqttPassword:                options.GetString(MQTT_PASSWORD),
		MqttConnectTimeout:          options.GetDuration(MQTT_CONNECT_TIMEOUT) * time.Second,
		MqttPublishTimeout:          options.GetDuration(MQTT_PUBLISH_TIMEOUT) * time.Second,
		MqttDisconnectQuiesceTime:   options.GetUint(MQTT_DISCONNECT_QUIESCE_TIME),
		MqttBrokerTlsSkipVerify:     options.GetBool(MQTT_BROKER_TLS_SKIP_VERIFY),
		MqttBrokerTlsCACertFile:     options.GetString(MQTT_BROKER_TLS_CA_CERT_FILE),
		MqttBrokerTlsClientCertFile: options.GetString(MQTT_BROKER_TLS_CLIENT_CERT),
		MqttBrokerTlsClientKeyFile:  options.GetString(MQTT_BROKER_TLS_CLIENT_KEY_FILE),

		BatchSize:              options.GetInt(BATCH_SIZE),
		BatchTimeout:           options.GetDuration(BATCH_TIMEOUT) * time.Millisecond,
		MaxRetries:             options.GetInt(MAX_RETRIES),
		RetryBackoffBase:       options.GetDuration(RETRY_BACKOFF_BASE) * time.Millisecond,
		RetryBackoffMultiplier: options.GetFloat64(RETRY_BACKOFF_MULTIPLIER),
		RetryBackoffMax:        options.GetDuration(RETRY_BACKOFF_MAX) * time.Millisecond,
		QueueCapacity:          options.GetInt(QUEUE_CAPACITY),
		BackpressurePolicy:     strings.ToLower(options.GetString(BACKPRESSURE_POLICY)),
		SubmitTimeout:          options.GetDuration(SUBMIT_TIMEOUT) * time.Millisecond,

		DeadLetterImpl:          options.GetString(DEAD_LETTER_IMPL),
		DeadLetterFile:          options.GetString(DEAD_LETTER_FILE),
		DeadLetterTopic:         options.GetString(DEAD_LETTER_TOPIC),
		DeadLetterDbHost:        options.GetString(DEAD_LETTER_DB_HOST),
		DeadLetterDbPort:        options.GetInt(DEAD_LETTER_DB_PORT),
		DeadLetterDbUser:        options.GetString(DEAD_LETTER_DB_USER),
		DeadLetterDbPassword:    options.GetString(DEAD_LETTER_DB_PASSWORD),
		DeadLetterDbName:        options.GetString(DEAD_LETTER_DB_NAME),
		DeadLetterDbSslMode:     options.GetString(DEAD_LETTER_DB_SSL_MODE),
		DeadLetterDbSslRootCert: options.GetString(DEAD_LETTER_DB_SSL_CERT),

		IncludedEventTypes: options.GetStringSlice(INCLUDED_EVENT_TYPES),
		EventTypeMapping:   options.GetStringMapString(EVENT_TYPE_MAPPING),
		IncludeAdminEvents: options.GetBool(INCLUDE_ADMIN_EVENTS),

		UserDirectoryImpl:  options.GetString(USER_DIRECTORY_IMPL),
		UserDirectoryUrl:   options.GetString(USER_DIRECTORY_URL),
		UserDirectoryToken: options.GetString(USER_DIRECTORY_TOKEN),
		UserCacheSize:      options.GetInt(USER_CACHE_SIZE),
		UserCacheTtl:       options.GetDuration(USER_CACHE_TTL) * time.Second,
		UserLookupTimeout:  options.GetDuration(USER_LOOKUP_TIMEOUT) * time.Millisecond,

		SerializerValidateSchema: options.GetBool(SERIALIZER_VALIDATE_SCHEMA),
	}

	if clowder.IsClowderEnabled() {
		applyClowderConfig(cfg, clowder.LoadedConfig, clowder.KafkaTopics)
	}

	return cfg
}

// applyClowderConfig overrides broker and database settings with the values handed
// out by the platform when running under clowder.
func applyClowderConfig(cfg *Config, appConfig *clowder.AppConfig, topics map[string]clowder.TopicConfig) {
	if appConfig == nil {
		return
	}

	if appConfig.Kafka != nil && len(appConfig.Kafka.Brokers) > 0 {
		brokers := make([]string, 0, len(appConfig.Kafka.Brokers))
		for _, broker := range appConfig.Kafka.Brokers {
			if broker.Port != nil {
				brokers = append(brokers, fmt.Sprintf("%s:%d", broker.Hostname, *broker.Port))
			} else {
				brokers = append(brokers, broker.Hostname)
			}
		}
		cfg.KafkaBrokers = brokers
	}

	if topic, found := topics[cfg.KafkaTopic]; found {
		cfg.KafkaTopic = topic.Name
	}

	if topic, found := topics[cfg.DeadLetterTopic]; found {
		cfg.DeadLetterTopic = topic.Name
	}

	if appConfig.Database != nil {
		cfg.DeadLetterDbHost = appConfig.Database.Hostname
		cfg.DeadLetterDbPort = appConfig.Database.Port
		cfg.DeadLetterDbUser = appConfig.Database.Username
		cfg.DeadLetterDbPassword = appConfig.Database.Password
		cfg.DeadLetterDbName = appConfig.Database.Name
	}
}

func buildUrlBasePath(pathPrefix string, appName string) string {
	return fmt.Sprintf("/%s/%s/v1", pathPrefix, appName)
}
