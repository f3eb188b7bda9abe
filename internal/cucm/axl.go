package cucm

import "encoding/xml"

const soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"

type requestEnvelope struct {
	XMLName xml.Name    `xml:"soapenv:Envelope"`
	SoapNS  string      `xml:"xmlns:soapenv,attr"`
	AXLNS   string      `xml:"xmlns:ns,attr"`
	Body    requestBody `xml:"soapenv:Body"`
}

type requestBody struct {
	Payload any
}

type phoneCriteria struct {
	Name        string `xml:"name,omitempty"`
	Description string `xml:"description,omitempty"`
}

// Empty elements select the fields AXL returns.
type phoneTags struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Model       string `xml:"model"`
	Product     string `xml:"product"`
	Class       string `xml:"class"`
	Protocol    string `xml:"protocol"`
}

type listPhoneRequest struct {
	XMLName        xml.Name      `xml:"ns:listPhone"`
	SearchCriteria phoneCriteria `xml:"searchCriteria"`
	ReturnedTags   phoneTags     `xml:"returnedTags"`
	Skip           int           `xml:"skip,omitempty"`
	First          int           `xml:"first,omitempty"`
}

type getPhoneRequest struct {
	XMLName xml.Name `xml:"ns:getPhone"`
	Name    string   `xml:"name"`
}

type facCriteria struct {
	Name string `xml:"name"`
}

type facTags struct {
	Name string `xml:"name"`
	Code string `xml:"code"`
}

type listFacInfoRequest struct {
	XMLName        xml.Name    `xml:"ns:listFacInfo"`
	SearchCriteria facCriteria `xml:"searchCriteria"`
	ReturnedTags   facTags     `xml:"returnedTags"`
}

type axlPhone struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Model       string `xml:"model"`
	Product     string `xml:"product"`
	Class       string `xml:"class"`
	Protocol    string `xml:"protocol"`
}

type axlFacInfo struct {
	Name string `xml:"name"`
	Code string `xml:"code"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

// responseEnvelope matches on local names so any namespace prefix works.
type responseEnvelope struct {
	Body struct {
		Fault     *soapFault `xml:"Fault"`
		ListPhone *struct {
			Phones []axlPhone `xml:"return>phone"`
		} `xml:"listPhoneResponse"`
		GetPhone *struct {
			Phone axlPhone `xml:"return>phone"`
		} `xml:"getPhoneResponse"`
		ListFacInfo *struct {
			FacInfo []axlFacInfo `xml:"return>facInfo"`
		} `xml:"listFacInfoResponse"`
	} `xml:"Body"`
}
