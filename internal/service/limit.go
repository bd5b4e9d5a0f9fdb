package service

import (
	"errors"
	"io"
)

// errSizeLimit возвращается limitedReader при превышении лимита.
var errSizeLimit = errors.New("превышен допустимый размер файла")

// limitedReader пропускает не больше limit байт. В отличие от
// io.LimitReader не обрезает поток молча: попытка прочитать байт
// сверх лимита — ошибка.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func newLimitedReader(r io.Reader, limit int64) *limitedReader {
	return &limitedReader{r: r, remaining: limit}
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, errSizeLimit
	}
	// Читаем на байт больше остатка, чтобы обнаружить превышение
	// Сравнение без l.remaining+1: при remaining = MaxInt64 оно переполняется
	if int64(len(p))-1 > l.remaining {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	if int64(n) > l.remaining {
		n = int(l.remaining)
		l.remaining = 0
		l.exceeded = true
		return n, errSizeLimit
	}
	l.remaining -= int64(n)
	return n, err
}

// Exceeded сообщает, пытался ли поток выйти за лимит.
func (l *limitedReader) Exceeded() bool {
	return l.exceeded
}
