package clientmqtt

type MQTTConf struct {
	ClientID string // ClientID - уникальное имя клиента для брокеров.
	Schema   string // Schema - тип подключения.
	Host     string // Host - адрес MQTT сервера.
	Port     string // Port - порт MQTT сервера.
	User     string // User - логин для подключения к MQTT серверу.
	Password string // Password - пароль для подключения к MQTT серверу.
	Qos      byte   // Qos - качество обслуживания.
	Prefix   string // Prefix - корень дерева топиков.
}

// setSuffix marks topics written by the mapping. They are never applied back.
const setSuffix = "set"

type nameTopic string

// Update is a parameter value received from the remote mixer.
type Update struct {
	Group string
	Key   string
	Value float64
}

// Payload is the JSON body of state and set topics.
type Payload struct {
	Value float64 `json:"value"`
}
