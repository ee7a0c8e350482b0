package decision

// Labels the classification oracle may return
const (
	LabelRespondNow  = "respond_now"
	LabelWaitForMore = "wait_for_more"
)

// Labels lists the classifier enumeration in a stable order
var Labels = []string{LabelRespondNow, LabelWaitForMore}

// rubricTemplate is filled with the rendered transcript
const rubricTemplate = `You are reviewing a WhatsApp conversation and must decide whether the assistant should reply now or stay silent and wait for the user's next message.

BACKGROUND: Users often split one question across several short messages. Replying to every fragment produces early, low-quality answers. Waiting on a finished message leaves the user without an answer.

REPLY NOW (respond_now) when the current message:
- is a complete question or request (ends with "?" or opens with a question word)
- is a greeting
- is an acknowledgment or a closing remark ("thanks", "ok, I'll do that")
- is an image or attachment sent without a caption
- otherwise reads as a finished, self-contained thought, even if the previous message was a fragment

WAIT (wait_for_more) when the current message:
- ends on a conjunction or connector ("and", "also", "because", "but", "y", "además", "porque", "pero")
- is a sentence fragment or looks cut off
- is very short and shows no clear intent
- shows the user is still building context or announces more is coming ("let me send you", "te mando")

A clear, grammatically complete question always wins over ambiguous earlier context. Judge the completeness of the CURRENT message first; the momentum of the conversation comes second.

EXAMPLES

Current: "Hola, quiero construir un muro de ladrillo pero el"
-> wait_for_more (cut off)

Current: "Tengo que vaciar una losa de 5x4 m, ¿cuántas bolsas de cemento necesito?"
-> respond_now (complete description with a question)

Current: "I have a rash"
-> wait_for_more (brief background, details likely coming)

Recent: "I have a rash"
Current: "Is it serious?"
-> respond_now (clear question)

Current: "Gracias, lo voy a probar"
-> respond_now (acknowledgment)

Recent: "Hola"
Current: "necesito ayuda con"
-> wait_for_more (building up to something)

Recent: "La columna tiene 25x25"
Recent: "y la viga 30x50"
Current: "¿Está bien ese diseño?"
-> respond_now (context finished with a question)

Recent: "Estoy techando mi casa"
Current: "y también"
-> wait_for_more (connector, more is coming)

Current: "Hello"
-> respond_now (greeting)

Current: "[attachment]"
-> respond_now (image without caption)

Recent: "I have a crack in the wall"
Current: "Let me send you"
-> wait_for_more (announces an attachment)

Recent: "Dime cuál"
Current: "es tu nombre"
-> respond_now (completes a direct question)

CONVERSATION
%s

Before deciding, ask yourself:
- Does the current message end on a connector?
- Is there a clear question or request?
- Is it a complete thought or partial background?
- Does the flow suggest more is coming?

Answer with exactly one label: respond_now or wait_for_more.`
