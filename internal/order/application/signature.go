package application

// SignatureHeader es la cabecera donde el emisor del webhook envía su token.
const SignatureHeader = "signature"

// VerifySignature compara el token presentado con el secreto configurado.
// Igualdad exacta de strings; la mitigación de ataques de timing queda fuera de alcance.
func VerifySignature(presentedToken, expectedSecret string) bool {
	return presentedToken == expectedSecret
}
