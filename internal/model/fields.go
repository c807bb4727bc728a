package model

// ExtractedFields содержит поля, извлеченные из текстовой подписи.
// Пустое значение означает, что поле не найдено.
type ExtractedFields struct {
	Episode    string
	Resolution Resolution
	Container  Container
	Subtitle   string
	SourceType string
}

// IsEmpty проверяет, что ни одно поле не найдено
func (f ExtractedFields) IsEmpty() bool {
	return f == ExtractedFields{}
}

// Resource представляет одну ссылку внутри строки списка
type Resource struct {
	Payload string
	Label   string
	// Trigger текст кнопки или ссылки, раскрывающей группу ресурсов
	Trigger string
}

// Row представляет один элемент списка (серию или фильм)
type Row struct {
	Header    string
	Date      string
	Resources []Resource
}
