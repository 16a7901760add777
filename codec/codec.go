package codec

// Serializer 字节序列化接口，用于数据集快照在调用方之间的值传递
type Serializer[T any] interface {
	Serialize(from T) ([]byte, error)
	Deserialize(data []byte) (T, error)
}
