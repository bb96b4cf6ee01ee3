package webhook

// WhatsApp Cloud API webhook payload structures based on:
// https://developers.facebook.com/docs/whatsapp/cloud-api/webhooks/payload-examples

// Payload is the body Meta posts for a whatsapp_business_account subscription.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the changes for one business account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change is one notification.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries inbound messages and delivery statuses.
type ChangeValue struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Contacts         []Contact `json:"contacts"`
	Messages         []Message `json:"messages"`
	Statuses         []Status  `json:"statuses"`
}

// Metadata identifies the receiving business number.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact is the sender's WhatsApp profile.
type Contact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// Message is one inbound message. Exactly one of the typed fields is set, per Type.
type Message struct {
	From        string       `json:"from"`
	ID          string       `json:"id"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *TextBody    `json:"text,omitempty"`
	Image       *MediaObject `json:"image,omitempty"`
	Document    *MediaObject `json:"document,omitempty"`
	Audio       *MediaObject `json:"audio,omitempty"`
	Video       *MediaObject `json:"video,omitempty"`
	Button      *ButtonBody  `json:"button,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

// TextBody is a text message body.
type TextBody struct {
	Body string `json:"body"`
}

// MediaObject references media hosted by Meta.
type MediaObject struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption"`
	Filename string `json:"filename"`
}

// ButtonBody is a quick-reply button press.
type ButtonBody struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// Interactive is a reply to an interactive list or button message.
type Interactive struct {
	Type        string `json:"type"`
	ButtonReply *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"button_reply,omitempty"`
	ListReply *struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"list_reply,omitempty"`
}

// Status is a delivery receipt for an outbound message.
type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
	Timestamp   string `json:"timestamp"`
}
