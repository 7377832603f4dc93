package fetcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleXML = `<?xml version="1.0"?>
<hierarchy>
  <node class="android.widget.FrameLayout" bounds="[0,0][1080,2000]" clickable="false" focusable="false">
    <node class="android.widget.EditText" resource-id="com.app:id/email" text="" bounds="[100,200][900,280]" clickable="true" focusable="true" enabled="true"/>
    <node class="android.widget.EditText" resource-id="com.app:id/password" text="" bounds="[100,320][900,400]" clickable="true" focusable="true" enabled="true"/>
    <node class="android.widget.Button" resource-id="com.app:id/login" text="Log in" bounds="[100,450][900,520]" clickable="true" enabled="true"/>
    <node class="com.android.systemui:id/status_bar" resource-id="com.android.systemui:id/status_bar" bounds="[0,0][1080,50]" clickable="true"/>
    <node class="android.widget.TextView" bounds="[0,0][0,0]" text="hidden" clickable="true"/>
  </node>
</hierarchy>`

func TestParseKeepsInteractiveAndSuppressesChrome(t *testing.T) {
	els, err := Parse([]byte(sampleXML))
	require.NoError(t, err)
	require.Len(t, els, 3)
	require.Equal(t, "com.app:id/email", els[0].ResourceID)
	require.Equal(t, "com.app:id/login", els[2].ResourceID)
}

func TestParseSiblingIndex(t *testing.T) {
	els, err := Parse([]byte(sampleXML))
	require.NoError(t, err)
	// both EditTexts share (parent, class) -> sibling index 1 then 2
	require.Equal(t, 1, els[0].SiblingIndex)
	require.Equal(t, 2, els[1].SiblingIndex)
}

func TestParseXPathPrefersResourceID(t *testing.T) {
	els, err := Parse([]byte(sampleXML))
	require.NoError(t, err)
	require.Equal(t, `//EditText[@resource-id="com.app:id/email"]`, els[0].XPath)
}

func TestParseZIndexSmallestAreaHighest(t *testing.T) {
	els, err := Parse([]byte(sampleXML))
	require.NoError(t, err)
	// login button area 800*70=56000, smaller than either edit text area 800*80=64000
	var loginZ, emailZ int
	for _, e := range els {
		if e.ResourceID == "com.app:id/login" {
			loginZ = e.ZIndex
		}
		if e.ResourceID == "com.app:id/email" {
			emailZ = e.ZIndex
		}
	}
	require.Greater(t, loginZ, emailZ)
}

func TestParseMalformedXMLFails(t *testing.T) {
	_, err := Parse([]byte("<hierarchy><node bounds=\"[0,0][10,10]\"></hierarchy>"))
	require.Error(t, err)
}

func TestParseEmptyBoundsCoerces(t *testing.T) {
	require.True(t, parseBounds("not-bounds").IsEmpty())
	b := parseBounds("[1,2][3,4]")
	require.Equal(t, 1, b.X1)
	require.Equal(t, 4, b.Y2)
}
