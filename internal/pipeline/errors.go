package pipeline

import "errors"

// Ошибки конвейера.
var (
	// ErrNoDeviceFound — в реестре нет устройства под намерение.
	ErrNoDeviceFound = errors.New("no matching device found")

	// ErrUnknownZone — намерение адресует зону, которой нет в реестре.
	ErrUnknownZone = errors.New("unknown zone")

	// ErrControlUnavailable — канал управления устройствами закрыт
	// предохранителем, команды не отправляются.
	ErrControlUnavailable = errors.New("device control unavailable")
)

// SoftFailure — мягкий отказ шага: конвейер продолжается,
// потребитель получает информационное событие вместо прерывания.
type SoftFailure struct {
	Reason string
	Err    error
}

// Error реализует error.
func (f *SoftFailure) Error() string {
	if f.Err != nil {
		return f.Reason + ": " + f.Err.Error()
	}
	return f.Reason
}

// Unwrap раскрывает вложенную ошибку для errors.Is.
func (f *SoftFailure) Unwrap() error { return f.Err }

// Soft оборачивает ошибку в мягкий отказ с причиной для потребителя.
func Soft(reason string, err error) error {
	return &SoftFailure{Reason: reason, Err: err}
}

// IsSoft сообщает, является ли ошибка мягким отказом.
func IsSoft(err error) bool {
	var f *SoftFailure
	return errors.As(err, &f)
}
