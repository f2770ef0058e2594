package cache

// Состояния диалога. Линейная цепочка формы заказа с одним ветвлением
// на подкатегории, плюс состояния поддержки и переноса времени.
const (
	StateNone = ""

	StateAskDate       = "ask_date"
	StateAskTime       = "ask_time"
	StateAskLocation   = "ask_location"
	StateAskPerformers = "ask_performers"
	StateAskProgram    = "ask_program"
	StateAskProgramSub = "ask_program_sub"
	StateAskAmount     = "ask_amount"
	StateAskDetails    = "ask_details"
	StateReviewOrder   = "review_order"

	StateSupportRequest = "support_request"
	StateSupportConfirm = "support_confirm"

	StateRescheduleTime = "reschedule_time"
)

// Kind различает, какой сценарий сейчас владеет сессией.
type Kind string

const (
	KindNone       Kind = ""
	KindOrder      Kind = "order"
	KindSupport    Kind = "support"
	KindReschedule Kind = "reschedule"
)

type (
	// OrderDraft - накапливаемые поля будущего заказа. Пустая строка
	// означает "еще не заполнено".
	OrderDraft struct {
		Date     string `json:"date,omitempty"`
		Time     string `json:"time,omitempty"`
		Location string `json:"location,omitempty"`
		// имя исполнителя или вариант "любой свободный"
		Performer string `json:"performer,omitempty"`
		// выбранная категория до уточнения подкатегории
		Category string `json:"category,omitempty"`
		// итоговое значение программы
		Program string `json:"program,omitempty"`
		Amount  string `json:"amount,omitempty"`
		Details string `json:"details,omitempty"`
	}

	SupportDraft struct {
		TicketID int64 `json:"ticket_id,omitempty"`
		// пользователь согласился прислать скриншот
		AwaitPhoto bool `json:"await_photo,omitempty"`
	}

	// Chat - сессионные данные одного диалога. Живут в кэше с коротким
	// временем жизни: просроченная сессия равна отмененному диалогу.
	Chat struct {
		PreviousState string `json:"prev_state"`
		CurrentState  string `json:"curr_state"`

		Kind    Kind         `json:"kind,omitempty"`
		Order   OrderDraft   `json:"order,omitempty"`
		Support SupportDraft `json:"support,omitempty"`
		// заказ, для которого исполнитель выбирает новое время
		RescheduleOrderID int64 `json:"reschedule_order_id,omitempty"`

		// отображаемый месяц календаря в состоянии выбора даты
		CalYear  int `json:"cal_year,omitempty"`
		CalMonth int `json:"cal_month,omitempty"`
	}
)
