// ABOUTME: User- and staff-facing texts and prompt options for the support flow
// ABOUTME: Texts after the language step are localized; earlier ones are English

package support

import (
	"fmt"

	"github.com/2389/helpdesk-bridge/internal/chat"
	"github.com/2389/helpdesk-bridge/internal/negotiation"
)

const (
	textPrivateOnly    = "This command can only be used in a private chat with the bot."
	textBusy           = "Another support request is being processed. Please wait a moment and try again."
	textChooseLanguage = "Please select your preferred language for support:"
	textThreadOpening  = "New support ticket"
	textThreadClosed   = "Chat ended"
	textUserClosed     = "The support topic has been closed."
)

// threadColors is the palette thread roots are tinted with.
var threadColors = []string{"#6FB9F0", "#FFD67E", "#CB86DB", "#8EEE98", "#FF93B2", "#FB6F5F"}

func (c *Coordinator) textAlreadyOpen() string {
	return fmt.Sprintf("You already have an open support ticket. Close it with %sclose or write a new message.", c.prefix)
}

func (c *Coordinator) textStaffClosed() string {
	return fmt.Sprintf("%s closed the support chat. Write %ssupport to open a new one.", c.team, c.prefix)
}

func textThreadEndedByUser(name string) string {
	return fmt.Sprintf("Chat ended by the user %s", name)
}

func textChooseCategory(lang negotiation.Language) string {
	if lang == negotiation.LanguageItalian {
		return "Che tipo di supporto ti serve?"
	}
	return "What kind of support do you need?"
}

// textTicketCreated is Markdown.
func (c *Coordinator) textTicketCreated(lang negotiation.Language, cat negotiation.Category) string {
	label := cat.Label(lang)
	if lang == negotiation.LanguageItalian {
		return fmt.Sprintf("Ticket di supporto creato per ***%s***! Puoi ora chattare con %s attraverso questo bot.\n\nPer chiudere la chat, usa `%sclose`.", label, c.team, c.prefix)
	}
	return fmt.Sprintf("Support ticket created for ***%s***! You can now chat with %s through this bot.\n\nTo close the chat, use `%sclose`.", label, c.team, c.prefix)
}

func textThreadFailed(lang negotiation.Language) string {
	if lang == negotiation.LanguageItalian {
		return "Non è stato possibile creare il ticket di supporto. Riprova più tardi."
	}
	return "The support ticket could not be created. Please try again later."
}

func textCancelled(lang negotiation.Language) string {
	if lang == negotiation.LanguageItalian {
		return "La richiesta di supporto è stata annullata."
	}
	return "Your support request has been cancelled."
}

func (c *Coordinator) textAbandoned(lang negotiation.Language) string {
	if lang == negotiation.LanguageItalian {
		return fmt.Sprintf("La richiesta di supporto è scaduta. Scrivi %ssupport per ricominciare.", c.prefix)
	}
	return fmt.Sprintf("Your support request expired before it was completed. Write %ssupport to start again.", c.prefix)
}

func threadTitle(p negotiation.Pending, requester string) string {
	return fmt.Sprintf("%s %s - %s", p.Language.Flag(), p.Category, requester)
}

func languageOptions() []chat.Option {
	opts := make([]chat.Option, 0, len(negotiation.Languages))
	for _, lang := range negotiation.Languages {
		opts = append(opts, chat.Option{
			Key:     lang.Flag(),
			Label:   lang.Flag() + " " + lang.Label(),
			Payload: negotiation.LanguagePayload(lang).String(),
		})
	}
	return opts
}

func categoryOptions(lang negotiation.Language) []chat.Option {
	opts := make([]chat.Option, 0, len(negotiation.Categories))
	for _, cat := range negotiation.Categories {
		opts = append(opts, chat.Option{
			Key:     cat.Emoji(),
			Label:   cat.Label(lang),
			Payload: negotiation.CategoryPayload(cat).String(),
		})
	}
	return opts
}
