package weft

// Message levels understood by the client runtime.
const (
	MessageInfo  = "info"
	MessageOK    = "ok"
	MessageError = "error"
)

// ShowMessage queues a sticky user-visible message on the current
// response. Messages are one-shot: they belong to the response being
// built and are not persisted with the transaction.
func (p *Page) ShowMessage(level, text string) {
	p.response.Message(level, text, false)
}

// ShowFadingMessage queues a message the client fades out after a few
// seconds.
func (p *Page) ShowFadingMessage(level, text string) {
	p.response.Message(level, text, true)
}

// ShowMessage queues a sticky page message from handler code.
func (c *Component) ShowMessage(level, text string) {
	c.page.ShowMessage(level, text)
}

// ShowFadingMessage queues a fading page message from handler code.
func (c *Component) ShowFadingMessage(level, text string) {
	c.page.ShowFadingMessage(level, text)
}
