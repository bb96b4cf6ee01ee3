package textgen

import (
	"fmt"
	"strings"
)

// Roles used by the pipelines.
const (
	LyricsWriterRole = "Eres un compositor profesional de canciones en español. Escribes letras emotivas, personales y cantables, con estrofas y coro claramente separados."
	StyleDraftRole   = "Eres productor musical. Describes estilos musicales con vocabulario técnico: género, tempo, instrumentación, carácter vocal y atmósfera."
	StyleRefineRole  = "You condense music style descriptions into short comma-separated style tags for a music generation model."
)

// LyricsInput carries the personal details a song is written about.
type LyricsInput struct {
	Purpose     string
	SubjectName string
	Anecdotes   string
}

// LyricsPrompt builds the fixed lyrics prompt shared by both generation pipelines.
func LyricsPrompt(in LyricsInput) string {
	return fmt.Sprintf(`Escribe la letra de una canción personalizada.

Motivo de la canción: %s
Nombre de la persona a quien va dedicada: %s
Anécdotas y detalles para incluir:
%s

Reglas:
- Usa el nombre de la persona al menos una vez.
- Incluye al menos dos de las anécdotas de forma natural.
- Estructura: Verso 1, Coro, Verso 2, Coro, Puente, Coro final.
- Marca cada sección entre corchetes, por ejemplo [Coro].
- Devuelve solo la letra, sin comentarios adicionales.`,
		strings.TrimSpace(in.Purpose),
		strings.TrimSpace(in.SubjectName),
		strings.TrimSpace(in.Anecdotes))
}

// StyleInput describes the requested musical style.
type StyleInput struct {
	Artist    string
	Genre     string
	VoiceType string
}

// StyleDraftPrompt asks for a style description inspired by the artist without naming them.
func StyleDraftPrompt(in StyleInput) string {
	return fmt.Sprintf(`Describe el estilo musical de una canción con estas referencias:
- Artista de referencia: %s
- Género: %s
- Tipo de voz: %s

Describe ritmo, instrumentos, producción y la forma de cantar que caracteriza a ese artista.
No menciones el nombre del artista ni de ninguna otra persona, banda o canción: la descripción no debe contener nombres propios para evitar problemas de derechos de autor.`,
		strings.TrimSpace(in.Artist),
		strings.TrimSpace(in.Genre),
		strings.TrimSpace(in.VoiceType))
}

// StyleRefinePrompt asks for the draft condensed into comma-separated style terms.
func StyleRefinePrompt(draft string, maxLen int) string {
	return fmt.Sprintf(`Condense the following description into at most %d characters of comma-separated music style terms (genre, tempo, instruments, vocal style, mood).
Do not include names of artists, bands or songs. Return only the terms.

Description:
%s`, maxLen, strings.TrimSpace(draft))
}
