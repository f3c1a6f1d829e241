package eventbus

// 기능별 기본 토픽 이름을 한 곳에서 관리한다.

var (
	TopicContentEvents = NewTopic("spacetraveling.content.events")
)

var AllTopics = []Topic{
	TopicContentEvents,
}
