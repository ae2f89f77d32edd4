package dialog

import (
	"strconv"
	"strings"

	"reservo/models"
)

const (
	replyBusinessNotFound = "Lo sentimos, este negocio no está disponible en este momento."
	replyInternalTrouble  = "Disculpa, tuvimos un problema procesando tu mensaje. ¿Puedes intentarlo de nuevo?"
	replyNotUnderstood    = "Disculpa, no entendí tu mensaje. ¿En qué puedo ayudarte?"
	replyFarewell         = "¡Gracias por escribirnos! Que tengas un buen día."
	replyNothingToCancel  = "No encontré ninguna reserva activa a tu nombre."
	replyCancelled        = "Listo, tu %s ha sido cancelada. ¡Esperamos verte pronto!"
	replyFlowAbandoned    = "De acuerdo, he descartado la solicitud. Escríbeme cuando quieras retomarla."
)

// fieldQuestions are the one-at-a-time prompts, keyed by slot field.
var fieldQuestions = map[string]string{
	models.FieldDate:     "¿Para qué fecha?",
	models.FieldTime:     "¿A qué hora?",
	models.FieldGuests:   "¿Para cuántas personas?",
	models.FieldPhone:    "¿Me compartes un teléfono de contacto?",
	models.FieldName:     "¿A nombre de quién?",
	models.FieldAddress:  "¿A qué dirección lo llevamos?",
	models.FieldTable:    "¿Tienes preferencia de mesa?",
	models.FieldService:  "¿Qué servicio deseas?",
	models.FieldProducts: "¿Qué te gustaría ordenar?",
}

// fieldLabels name slots inside composed sentences.
var fieldLabels = map[string]string{
	models.FieldDate:     "la fecha",
	models.FieldTime:     "la hora",
	models.FieldGuests:   "el número de personas",
	models.FieldPhone:    "un teléfono de contacto",
	models.FieldName:     "el nombre",
	models.FieldAddress:  "la dirección",
	models.FieldTable:    "la mesa",
	models.FieldService:  "el servicio",
	models.FieldProducts: "los productos",
}

func greetingReply(biz *models.Business) string {
	var names []string
	for _, svc := range biz.Config.Services {
		names = append(names, svc.DisplayName)
	}
	if len(names) == 0 {
		return "¡Hola! Bienvenido a " + biz.Name + ". ¿En qué puedo ayudarte?"
	}
	return "¡Hola! Bienvenido a " + biz.Name + ". Ofrecemos: " + strings.Join(names, ", ") + ". ¿En qué puedo ayudarte?"
}

// askAllReply lists every still-missing field in one message.
func askAllReply(noun string, missing []string) string {
	var labels []string
	for _, f := range missing {
		labels = append(labels, fieldLabels[f])
	}
	return "¡Perfecto! Para completar tu " + noun + " necesito: " + strings.Join(labels, ", ") + "."
}

// askOneReply prompts for a single field, optionally listing choices.
func askOneReply(biz *models.Business, field string) string {
	switch field {
	case models.FieldService:
		var names []string
		for _, svc := range biz.Config.Services {
			names = append(names, svc.DisplayName)
		}
		return fieldQuestions[field] + " Tenemos: " + strings.Join(names, ", ") + "."
	case models.FieldProducts:
		var names []string
		for _, p := range biz.Config.Products {
			if p.Available {
				names = append(names, p.Name)
			}
		}
		return fieldQuestions[field] + " Tenemos: " + strings.Join(names, ", ") + "."
	case models.FieldTable:
		var names []string
		for _, t := range biz.Config.Tables {
			names = append(names, t.Name)
		}
		if len(names) > 0 {
			return fieldQuestions[field] + " Opciones: " + strings.Join(names, ", ") + "."
		}
	}
	return fieldQuestions[field]
}

func conflictReply(field, oldValue, newValue string) string {
	return "Tenía anotado " + fieldLabels[field] + " como " + oldValue +
		". ¿Lo cambio a " + newValue + "?"
}

func outOfHoursReply(timeOfDay string, alternatives []string) string {
	if len(alternatives) == 0 {
		return "Lo sentimos, a las " + timeOfDay + " estamos cerrados."
	}
	return "Lo sentimos, a las " + timeOfDay + " estamos cerrados. Te puedo ofrecer: " +
		strings.Join(alternatives, ", ") + ". ¿Cuál prefieres?"
}

func noTableReply(alternatives []string) string {
	if len(alternatives) == 0 {
		return "Lo sentimos, no tenemos mesas disponibles a esa hora. ¿Quieres intentar otro horario?"
	}
	return "Esa mesa no está disponible. Te puedo ofrecer: " + strings.Join(alternatives, ", ") + ". ¿Cuál prefieres?"
}

func invalidProductsReply(biz *models.Business, issues []string) string {
	var avail []string
	for _, p := range biz.Config.Products {
		if p.Available {
			avail = append(avail, p.Name)
		}
	}
	return "No pude agregar: " + strings.Join(issues, ", ") +
		". Nuestro menú disponible es: " + strings.Join(avail, ", ") + "."
}

func confirmationReply(biz *models.Business, noun string, res *models.Reservation) string {
	var b strings.Builder
	b.WriteString("¡Listo! Tu " + noun + " en " + biz.Name + " quedó confirmada para el " + res.Date + " a las " + res.Time)
	if res.Guests > 0 {
		b.WriteString(", " + guestsPhrase(res.Guests))
	}
	if res.TableID != "" {
		if t, ok := tableByID(biz, res.TableID); ok {
			b.WriteString(", mesa " + t.Name)
		}
	}
	b.WriteString(".")
	if len(res.Products) > 0 {
		var items []string
		for _, sel := range res.Products {
			if p, ok := biz.ProductByID(sel.ProductID); ok {
				items = append(items, strconv.Itoa(sel.Quantity)+"x "+p.Name)
			}
		}
		b.WriteString(" Tu pedido: " + strings.Join(items, ", ") + ".")
	}
	return b.String()
}

func paymentReply(noun, url string) string {
	return "Tu " + noun + " está casi lista. Para confirmarla, completa el pago aquí: " + url
}

func awaitingPaymentReply(url string) string {
	return "Seguimos esperando tu pago para confirmar la reserva: " + url
}

func queryReply(noun string, active []models.Reservation) string {
	if len(active) == 0 {
		return "No tienes ninguna " + noun + " activa en este momento."
	}
	var lines []string
	for _, r := range active {
		lines = append(lines, "el "+r.Date+" a las "+r.Time+" ("+string(r.Status)+")")
	}
	return "Tienes " + strconv.Itoa(len(lines)) + " " + noun + "(s): " + strings.Join(lines, "; ") + "."
}

func hoursReply(biz *models.Business) string {
	if len(biz.Config.Hours) == 0 {
		return "Estamos disponibles a cualquier hora. ¿Quieres hacer una reserva?"
	}
	var windows []string
	for _, w := range biz.Config.Hours {
		windows = append(windows, w.Open+" a "+w.Close)
	}
	return "Nuestro horario es de " + strings.Join(windows, " y de ") + ". ¿Quieres hacer una reserva?"
}

func guestsPhrase(n int) string {
	if n == 1 {
		return "para 1 persona"
	}
	return "para " + strconv.Itoa(n) + " personas"
}

func tableByID(biz *models.Business, id string) (models.TableDefinition, bool) {
	for _, t := range biz.Config.Tables {
		if t.ID == id {
			return t, true
		}
	}
	return models.TableDefinition{}, false
}
