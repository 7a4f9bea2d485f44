package mbus

// ReaderFunc получает содержимое сообщения.
// Срез действителен только на время вызова, сохранять его нельзя.
type ReaderFunc func(data []byte)

// buffer — собственная неизменяемая копия полезной нагрузки.
type buffer struct {
	data []byte
}

func newBuffer(data []byte) buffer {
	b := make([]byte, len(data))
	copy(b, data)
	return buffer{data: b}
}

// clone нужен для рассылки: у каждой очереди своя копия.
func (b buffer) clone() buffer {
	return newBuffer(b.data)
}

func (b buffer) Len() int { return len(b.data) }
